// Package retention prunes the journal by age and by record count, either
// on demand or on a cron schedule.
//
//	pruner := retention.NewPruner(store, retention.FromConfig(cfg.Journal.Retention))
//	if err := pruner.Start(ctx); err != nil {
//	    return err
//	}
//	defer pruner.Stop()
package retention
