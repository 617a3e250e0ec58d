package monitor

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RunSchedule выполняет job сразу, затем по cron-выражению spec до отмены ctx.
// Запуски не перекрываются: если предыдущий ещё идёт, очередной пропускается.
func RunSchedule(ctx context.Context, spec string, job func(context.Context), log *zap.Logger) error {
	logger := cron.PrintfLogger(zap.NewStdLog(log))
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() { job(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	job(ctx)
	c.Start()
	log.Info("ratio monitor scheduled", zap.String("spec", spec))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
