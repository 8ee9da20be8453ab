package cmd

import (
	"context"

	"go.uber.org/zap"

	"martflow/internal/dataset"
	"martflow/internal/security"
	"martflow/internal/ui"
	"martflow/internal/warehouse"
)

// materialize writes tables to the active target, one at a time so progress
// and metrics are per table. It returns the names that were written.
func (a *app) materialize(ctx context.Context, tables []dataset.Table) ([]string, error) {
	name, target, _ := a.cfg.ActiveTarget()

	target, src, err := security.NewCredentialManager().Resolve(name, target)
	if err != nil {
		return nil, err
	}
	if src != security.SourceNone {
		a.log.Debug("password resolved", zap.String("target", name), zap.String("source", string(src)))
	}

	w, err := warehouse.Open(ctx, target, a.log)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			a.log.Warn("could not close target", zap.String("target", name), zap.Error(cerr))
		}
	}()

	ui.PrintSection("Materializing to " + name + " (" + target.Type + ")")
	progress := ui.NewProgressBar(len(tables))

	var written []string
	for i, t := range tables {
		if err := w.Write(ctx, []dataset.Table{t}); err != nil {
			progress.Update(i+1, t.Name, false)
			progress.Finish()
			return written, err
		}
		a.metrics.ObserveWrite(target.Type, t.Name, t.Len())
		written = append(written, t.Name)
		progress.Update(i+1, t.Name, true)
	}
	progress.Finish()
	return written, nil
}
