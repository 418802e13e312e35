// Package registration implements the auth.register sequence as a chain of
// typed stages run through a rollback-accumulating executor: a failure
// partway through runs the rollbacks of the stages that already returned
// one. The package has no stage chains for account-stream event mutations
// or for user deletion.
package registration

import "context"

// Stage is one named step of a pipeline. It may return a rollback closure;
// if a later stage fails, every rollback returned so far runs in reverse
// order before the pipeline returns the triggering error.
type Stage func(ctx context.Context, st *State) (rollback func(context.Context) error, err error)

// Run executes stages in order, accumulating rollbacks. On the first
// error, it unwinds by invoking every accumulated rollback (most recent
// first) before returning the original error — rollback failures are
// logged, never masking the triggering error.
func Run(ctx context.Context, st *State, stages ...Stage) error {
	var rollbacks []func(context.Context) error

	for _, stage := range stages {
		rollback, err := stage(ctx, st)
		if rollback != nil {
			rollbacks = append(rollbacks, rollback)
		}
		if err != nil {
			unwind(ctx, rollbacks)
			return err
		}
	}

	return nil
}

func unwind(ctx context.Context, rollbacks []func(context.Context) error) {
	for i := len(rollbacks) - 1; i >= 0; i-- {
		if err := rollbacks[i](ctx); err != nil {
			logRollbackFailure(err)
		}
	}
}
