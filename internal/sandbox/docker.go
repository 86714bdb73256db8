package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/docker/docker/api/types/container"
	img "github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-grading/internal/grading"
)

// Runtime describes how to run a program of one language.
type Runtime struct {
	Image string
	File  string // source path inside the container
	Run   string // shell command reading stdin
}

// DefaultRuntimes maps languages to the commands used to run them.
var DefaultRuntimes = map[string]Runtime{
	"python":     {Image: "python:3.12-alpine", File: "/tmp/main.py", Run: "python3 /tmp/main.py"},
	"javascript": {Image: "node:22-alpine", File: "/tmp/main.js", Run: "node /tmp/main.js"},
	"go":         {Image: "golang:1.24-alpine", File: "/tmp/main.go", Run: "go run /tmp/main.go"},
}

var aliases = map[string]string{"py": "python", "python3": "python", "js": "javascript", "node": "javascript", "golang": "go"}

type Options struct {
	Images      map[string]string // overrides DefaultRuntimes images
	MemoryBytes int64
	CPUs        float64
	Parallel    int // containers per submission
}

// Docker runs each test case in its own short-lived, network-less container.
type Docker struct {
	cli      *client.Client
	runtimes map[string]Runtime
	res      container.Resources
	parallel int

	mu     sync.Mutex
	pulled map[string]bool
}

func NewDocker(opts Options) (*Docker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	runtimes := make(map[string]Runtime, len(DefaultRuntimes))
	for lang, rt := range DefaultRuntimes {
		if image := opts.Images[lang]; image != "" {
			rt.Image = image
		}
		runtimes[lang] = rt
	}
	if opts.MemoryBytes <= 0 {
		opts.MemoryBytes = 256 << 20
	}
	if opts.CPUs <= 0 {
		opts.CPUs = 1
	}
	if opts.Parallel <= 0 {
		opts.Parallel = 2
	}
	pids := int64(64)
	return &Docker{
		cli:      cli,
		runtimes: runtimes,
		res: container.Resources{
			Memory:    opts.MemoryBytes,
			NanoCPUs:  int64(opts.CPUs * 1e9),
			PidsLimit: &pids,
		},
		parallel: opts.Parallel,
		pulled:   map[string]bool{},
	}, nil
}

// Ping checks that the daemon is reachable.
func (d *Docker) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return fmt.Errorf("cannot reach docker daemon: %w", err)
	}
	return nil
}

func (d *Docker) Close() error { return d.cli.Close() }

// RunTests implements grading.Sandbox. The score is the number of passing cases.
func (d *Docker) RunTests(ctx context.Context, code, language string, tests []grading.TestCase) (grading.SandboxReport, error) {
	rt, err := d.runtime(language)
	if err != nil {
		return grading.SandboxReport{}, err
	}
	if err := d.pullIfNeeded(ctx, rt.Image); err != nil {
		return grading.SandboxReport{}, fmt.Errorf("pull %s: %w", rt.Image, err)
	}

	outcomes := make([]grading.TestOutcome, len(tests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.parallel)
	for i, tc := range tests {
		i, tc := i, tc
		g.Go(func() error {
			stdout, stderr, exit, err := d.runOnce(gctx, rt, code, tc.Input)
			if err != nil {
				return err
			}
			outcomes[i] = judge(tc, stdout, stderr, exit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return grading.SandboxReport{}, err
	}

	report := grading.SandboxReport{MaxScore: float64(len(tests)), Results: outcomes}
	report.Score = float64(report.Passed())
	return report, nil
}

func (d *Docker) runtime(language string) (Runtime, error) {
	lang := strings.ToLower(strings.TrimSpace(language))
	if a, ok := aliases[lang]; ok {
		lang = a
	}
	rt, ok := d.runtimes[lang]
	if !ok {
		return Runtime{}, fmt.Errorf("unsupported language %q", language)
	}
	return rt, nil
}

func (d *Docker) pullIfNeeded(ctx context.Context, image string) error {
	d.mu.Lock()
	done := d.pulled[image]
	d.mu.Unlock()
	if done {
		return nil
	}
	if _, _, err := d.cli.ImageInspectWithRaw(ctx, image); err != nil {
		reader, err := d.cli.ImagePull(ctx, imageRef(image), img.PullOptions{})
		if err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, reader) // eat the progress stream
		reader.Close()
	}
	d.mu.Lock()
	d.pulled[image] = true
	d.mu.Unlock()
	return nil
}

// runOnce writes the program from an env var, pipes the case input to it and
// collects both streams.
func (d *Docker) runOnce(ctx context.Context, rt Runtime, code, input string) (stdout, stderr string, exitCode int, err error) {
	script := fmt.Sprintf(`printf '%%s' "$SANDBOX_CODE" > %s && printf '%%s' "$SANDBOX_INPUT" | %s`, rt.File, rt.Run)
	create, err := d.cli.ContainerCreate(ctx, &container.Config{
		Image:           rt.Image,
		Cmd:             []string{"sh", "-c", script},
		Env:             []string{"SANDBOX_CODE=" + code, "SANDBOX_INPUT=" + input},
		NetworkDisabled: true,
		Tty:             false,
	}, &container.HostConfig{
		NetworkMode: container.NetworkMode("none"),
		Resources:   d.res,
	}, nil, nil, "")
	if err != nil {
		return "", "", 0, fmt.Errorf("create: %w", err)
	}
	cid := create.ID
	defer func() {
		if err := d.cli.ContainerRemove(context.Background(), cid, container.RemoveOptions{Force: true}); err != nil {
			log.Printf("sandbox: remove %s: %v", cid, err)
		}
	}()

	if err := d.cli.ContainerStart(ctx, cid, container.StartOptions{}); err != nil {
		return "", "", 0, fmt.Errorf("start: %w", err)
	}
	statusCh, errCh := d.cli.ContainerWait(ctx, cid, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return "", "", 0, fmt.Errorf("wait: %w", err)
		}
	case st := <-statusCh:
		exitCode = int(st.StatusCode)
	}

	logs, err := d.cli.ContainerLogs(ctx, cid, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", "", exitCode, fmt.Errorf("logs: %w", err)
	}
	defer logs.Close()
	var outBuf, errBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&outBuf, &errBuf, logs); err != nil {
		return "", "", exitCode, fmt.Errorf("logs: %w", err)
	}
	return outBuf.String(), errBuf.String(), exitCode, nil
}

// judge compares trimmed stdout with the expected output.
func judge(tc grading.TestCase, stdout, stderr string, exitCode int) grading.TestOutcome {
	out := grading.TestOutcome{
		Expected: tc.Output,
		Actual:   strings.TrimSpace(stdout),
	}
	if exitCode != 0 {
		out.Error = fmt.Sprintf("exit code %d: %s", exitCode, truncate(strings.TrimSpace(stderr), 500))
		return out
	}
	out.Passed = normalizeOutput(stdout) == normalizeOutput(tc.Output)
	return out
}

// normalizeOutput trims the whole output and each line's trailing space.
func normalizeOutput(s string) string {
	lines := strings.Split(strings.ReplaceAll(strings.TrimSpace(s), "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func imageRef(image string) string {
	// allow "python:3.12", "library/python", etc.
	if strings.Contains(image, "/") || strings.Contains(image, ":") {
		return image
	}
	return "docker.io/library/" + image + ":latest"
}
