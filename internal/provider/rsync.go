package provider

import (
	"context"
	"errors"
	"slices"
	"strings"
)

var rsyncDefaultOptions = []string{
	"-aHvh", "--no-o", "--no-g", "--stats",
	"--exclude", ".~tmp~/",
	"--delete", "--delete-after", "--delay-updates",
	"--safe-links", "--timeout=120",
}

// stage one never deletes so the tree stays consistent until stage two
var rsyncStage1Options = []string{
	"-aHvh", "--no-o", "--no-g", "--stats",
	"--exclude", ".~tmp~/",
	"--safe-links", "--timeout=120",
}

type rsyncProvider struct {
	base
}

func (p *rsyncProvider) args() []string {
	return rsyncArgs(rsyncDefaultOptions, nil, p.job.UseIPv6, p.job.RsyncOptions, p.job.Upstream, p.job.MirrorDir)
}

func (p *rsyncProvider) Run(ctx context.Context, logFile string) error {
	if err := p.begin(logFile); err != nil {
		return err
	}

	runErr := runProcess(ctx, p.spec(p.opts.rsyncPath, p.args(), logFile))
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(runErr, ctxErr) {
		return runErr
	}
	if err := classifyExit(runErr, p.job.SuccessExitCodes, RsyncExitReason); err != nil {
		return err
	}
	if err := p.checkFailOnMatch(logFile); err != nil {
		return err
	}

	p.setSize(ExtractSize(logFile, RsyncSizePattern))
	return nil
}

type twoStageRsyncProvider struct {
	base
	stage1Excludes []string
}

func (p *twoStageRsyncProvider) stageArgs(stage int) []string {
	if stage == 1 {
		return rsyncArgs(rsyncStage1Options, p.stage1Excludes, p.job.UseIPv6, p.job.RsyncOptions, p.job.Upstream, p.job.MirrorDir)
	}
	return rsyncArgs(rsyncDefaultOptions, nil, p.job.UseIPv6, p.job.RsyncOptions, p.job.Upstream, p.job.MirrorDir)
}

func (p *twoStageRsyncProvider) Run(ctx context.Context, logFile string) error {
	if err := p.begin(logFile); err != nil {
		return err
	}

	for _, stage := range []int{1, 2} {
		runErr := runProcess(ctx, p.spec(p.opts.rsyncPath, p.stageArgs(stage), logFile))
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(runErr, ctxErr) {
			return runErr
		}
		if err := classifyExit(runErr, p.job.SuccessExitCodes, RsyncExitReason); err != nil {
			return err
		}
	}
	if err := p.checkFailOnMatch(logFile); err != nil {
		return err
	}

	// both stages print --stats; the last block belongs to stage two
	p.setSize(ExtractSize(logFile, RsyncSizePattern))
	return nil
}

func rsyncArgs(defaults, excludes []string, ipv6 bool, extra []string, upstream, dir string) []string {
	args := slices.Clone(defaults)
	for _, pattern := range excludes {
		args = append(args, "--exclude", pattern)
	}
	if ipv6 {
		args = append(args, "-6")
	}
	args = append(args, extra...)

	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return append(args, upstream, dir)
}
