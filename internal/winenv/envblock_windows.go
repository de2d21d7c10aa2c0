//go:build windows

package winenv

import (
	"fmt"
	"os"
	"unicode/utf16"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"

	"github.com/ironframe-host/ironframe/internal/useracct"
)

// WindowsLoader is the production Loader. ForUser expects cred to be a
// *useracct.Credential carrying a windows.Token.
type WindowsLoader struct{}

var _ Loader = WindowsLoader{}

func (WindowsLoader) Inherited() (map[string]string, error) {
	return EnvsFromList(os.Environ())
}

func (WindowsLoader) ForUser(cred interface{}) (map[string]string, error) {
	c, ok := cred.(*useracct.Credential)
	if !ok {
		return nil, fmt.Errorf("winenv: ForUser: unsupported credential type %T", cred)
	}
	tok, ok := c.Token.(windows.Token)
	if !ok {
		return nil, fmt.Errorf("winenv: ForUser: credential %s has no windows token", c.Username)
	}
	list, err := defaultEnvBlock(tok)
	if err != nil {
		return nil, err
	}
	return EnvsFromList(list)
}

// defaultEnvBlock loads the environment block for token, grounded on the
// teacher's internal/jobcontainers/env.go (itself adapted from the Go
// stdlib's execenv_windows.go).
func defaultEnvBlock(token windows.Token) (env []string, err error) {
	if token == 0 {
		return nil, errors.New("invalid token for creating environment block")
	}

	var block *uint16
	if err := windows.CreateEnvironmentBlock(&block, token, false); err != nil {
		return nil, err
	}
	defer windows.DestroyEnvironmentBlock(block)

	blockp := uintptr(unsafe.Pointer(block))
	for {
		end := unsafe.Pointer(blockp)
		for *(*uint16)(end) != 0 {
			end = unsafe.Pointer(uintptr(end) + 2)
		}

		n := (uintptr(end) - blockp) / 2
		if n == 0 {
			break
		}
		entry := unsafe.Slice((*uint16)(unsafe.Pointer(blockp)), n)
		env = append(env, string(utf16.Decode(entry)))
		blockp += 2 * (uintptr(len(entry)) + 1)
	}
	return env, nil
}
