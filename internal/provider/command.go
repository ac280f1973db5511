package provider

import (
	"context"
	"errors"
)

type commandProvider struct {
	base
}

func (p *commandProvider) Run(ctx context.Context, logFile string) error {
	if err := p.begin(logFile); err != nil {
		return err
	}

	env := []string{
		"HUSTSYNC_MIRROR_NAME=" + p.job.Name,
		"HUSTSYNC_WORKING_DIR=" + p.job.MirrorDir,
		"HUSTSYNC_UPSTREAM_URL=" + p.job.Upstream,
		"HUSTSYNC_LOG_DIR=" + p.job.LogDir,
		"HUSTSYNC_LOG_FILE=" + logFile,
	}

	runErr := runProcess(ctx, p.spec(p.opts.shellPath, []string{"-c", p.job.Command}, logFile, env...))
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(runErr, ctxErr) {
		return runErr
	}
	if err := classifyExit(runErr, p.job.SuccessExitCodes, commandExitReason); err != nil {
		return err
	}
	if err := p.checkFailOnMatch(logFile); err != nil {
		return err
	}

	if p.job.SizePattern != nil {
		p.setSize(ExtractSize(logFile, p.job.SizePattern))
	}
	return nil
}
