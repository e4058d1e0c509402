// Package scheduler runs periodic maintenance jobs inside the process.
//
// Tasks are plain functions registered with a Schedule (Every, DailyAt,
// HourlyAt). Start polls for due tasks on a ticker and runs each one on its
// own goroutine; a task never overlaps with itself. RunNow triggers a task
// synchronously, which is handy for admin endpoints and tests.
//
//	s := scheduler.New(scheduler.WithLogger(log))
//	_ = s.AddTask("unsubscribe-expired", scheduler.Every(time.Hour),
//		func(ctx context.Context) error {
//			_, err := manager.UnsubscribeExpired(ctx)
//			return err
//		}, scheduler.WithRunOnStart())
//	go s.Start(ctx)
package scheduler
