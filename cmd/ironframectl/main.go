//go:build windows

// Command ironframectl is the operator CLI: create, destroy, list, and
// restore containers, run commands inside one, and inspect a
// container's job-object resource limits. Grounded on the teacher's
// cmd/jobobject-util (urfave/cli v1, one command per verb, a shared
// flag for addressing the target object).
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli"

	"github.com/ironframe-host/ironframe/command"
	"github.com/ironframe-host/ironframe/containerservice"
	"github.com/ironframe-host/ironframe/internal/hostclient"
	"github.com/ironframe-host/ironframe/internal/jobobj"
	"github.com/ironframe-host/ironframe/internal/log"
	"github.com/ironframe-host/ironframe/internal/winenv"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

const usage = "ironframectl manages IronFrame Host application containers"

func main() {
	// Re-exec entry: the service launches this same binary with
	// AgentReexecArg as argv[1] to act as a container's host agent,
	// mirroring the teacher's hidden "shim" subcommand in cmd/runhcs.
	if len(os.Args) > 2 && os.Args[1] == hostclient.AgentReexecArg {
		if err := hostclient.ServeAgent(os.Args[2], winenv.WindowsLoader{}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	app := cli.NewApp()
	app.Name = "ironframectl"
	app.Usage = usage
	app.Commands = []cli.Command{
		createCommand,
		destroyCommand,
		listCommand,
		restoreCommand,
		runCommand,
		jobLimitsCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newService wires the production Service and re-attaches to the
// containers already on disk, since every CLI invocation starts with an
// empty registry.
func newService() (*containerservice.Service, error) {
	svc, err := containerservice.NewDefault(containerservice.DefaultHostConfig())
	if err != nil {
		return nil, err
	}
	if _, err := svc.Restore(context.Background()); err != nil {
		return nil, err
	}
	return svc, nil
}

var createCommand = cli.Command{
	Name:      "create",
	Usage:     "create a new container",
	ArgsUsage: "create [--handle <handle>] [--bind src:dst ...]",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "handle", Usage: "Optional: external handle; generated if omitted"},
		cli.StringSliceFlag{Name: "bind", Usage: "Optional: src:dst bind mount, repeatable"},
	},
	Action: func(ctx *cli.Context) error {
		svc, err := newService()
		if err != nil {
			return err
		}

		var mounts []specs.Mount
		for _, b := range ctx.StringSlice("bind") {
			parts := strings.SplitN(b, ":", 2)
			if len(parts) != 2 {
				return fmt.Errorf("invalid --bind %q, expected src:dst", b)
			}
			mounts = append(mounts, specs.Mount{Source: parts[0], Destination: parts[1]})
		}

		c, err := svc.Create(context.Background(), &containerservice.Spec{
			Handle:     ctx.String("handle"),
			BindMounts: mounts,
		})
		if err != nil {
			return err
		}
		fmt.Printf("handle: %s\nid: %s\n", c.Handle(), c.ID())
		return nil
	},
}

var destroyCommand = cli.Command{
	Name:      "destroy",
	Usage:     "destroy a container by handle",
	ArgsUsage: "destroy <handle>",
	Action: func(ctx *cli.Context) error {
		handle := ctx.Args().First()
		if handle == "" {
			return fmt.Errorf("destroy requires a handle")
		}
		svc, err := newService()
		if err != nil {
			return err
		}
		return svc.Destroy(context.Background(), handle)
	},
}

var listCommand = cli.Command{
	Name:  "list",
	Usage: "list live container handles",
	Action: func(ctx *cli.Context) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		for _, h := range svc.GetHandles() {
			fmt.Println(h)
		}
		return nil
	},
}

var restoreCommand = cli.Command{
	Name:  "restore",
	Usage: "re-attach to containers found on disk",
	Action: func(ctx *cli.Context) error {
		svc, err := newService()
		if err != nil {
			return err
		}
		restored, err := svc.Restore(context.Background())
		if err != nil {
			return err
		}
		for _, c := range restored {
			fmt.Printf("restored: handle=%s id=%s\n", c.Handle(), c.ID())
		}
		return nil
	},
}

var runCommand = cli.Command{
	Name:      "run",
	Usage:     "run a program inside a container",
	ArgsUsage: "run <handle> -- <path> [args...]",
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		if len(args) < 2 {
			return fmt.Errorf("run requires a handle and a program path")
		}
		handle := args[0]

		svc, err := newService()
		if err != nil {
			return err
		}
		c, ok := svc.GetByHandle(handle)
		if !ok {
			return fmt.Errorf("no live container with handle %q", handle)
		}

		runner := command.New()
		runner.Register(command.RunVerb, command.NewRunFactory())

		result, err := runner.RunAsync(command.RunVerb, command.Args{
			Ctx:       context.Background(),
			Container: c,
			Argv:      args[1:],
		})
		if err != nil {
			return err
		}
		fmt.Print(result.Stdout)
		fmt.Fprint(os.Stderr, result.Stderr)
		os.Exit(result.ExitCode)
		return nil
	},
}

const (
	cpuLimitFlag    = "cpu-limit"
	cpuWeightFlag   = "cpu-weight"
	memoryLimitFlag = "memory-limit"
)

var jobLimitsCommand = cli.Command{
	Name:      "job-limits",
	Usage:     "get or set a container's job-object resource limits",
	ArgsUsage: "job-limits <handle> [--cpu-limit N] [--cpu-weight N] [--memory-limit N]",
	Flags: []cli.Flag{
		cli.Uint64Flag{Name: cpuLimitFlag, Usage: "Optional: set the job's CPU rate limit"},
		cli.Uint64Flag{Name: cpuWeightFlag, Usage: "Optional: set the job's CPU weight"},
		cli.Uint64Flag{Name: memoryLimitFlag, Usage: "Optional: set the job's memory limit in bytes"},
	},
	Action: func(ctx *cli.Context) error {
		handle := ctx.Args().First()
		if handle == "" {
			return fmt.Errorf("job-limits requires a handle")
		}

		svc, err := newService()
		if err != nil {
			return err
		}
		c, ok := svc.GetByHandle(handle)
		if !ok {
			return fmt.Errorf("no live container with handle %q", handle)
		}

		limits := &jobobj.Limits{}
		if ctx.IsSet(cpuLimitFlag) && ctx.IsSet(cpuWeightFlag) {
			return fmt.Errorf("cpu limit and weight are mutually exclusive")
		}
		if ctx.IsSet(cpuLimitFlag) {
			limits.CPULimit = uint32(ctx.Uint64(cpuLimitFlag))
		}
		if ctx.IsSet(cpuWeightFlag) {
			limits.CPUWeight = uint32(ctx.Uint64(cpuWeightFlag))
		}
		if ctx.IsSet(memoryLimitFlag) {
			limits.MemoryLimitInBytes = ctx.Uint64(memoryLimitFlag)
		}

		jobHandle := c.Job()
		if jobHandle == nil {
			return fmt.Errorf("container %q has no accessible job object", handle)
		}
		if err := jobHandle.SetResourceLimits(limits); err != nil {
			return err
		}

		log.L().WithField("handle", handle).Info("updated job object limits")
		return nil
	},
}
