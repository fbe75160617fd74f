package cli

import (
	"fmt"

	actx "go.hackfix.me/vocbase/app/context"
	"go.hackfix.me/vocbase/db"
)

// openRegistry loads all databases in the data directory.
func openRegistry(appCtx *actx.Context) (*db.Registry, error) {
	reg := db.NewRegistry(appCtx.Ctx, appCtx.FS, appCtx.DataDir, appCtx.TimeNow,
		db.WithSystemDatabase(appCtx.Config.Database.System.V),
		db.WithRegistryLogger(appCtx.Logger),
	)
	if err := reg.Load(); err != nil {
		_ = reg.Close()
		return nil, fmt.Errorf("failed loading databases: %w", err)
	}

	return reg, nil
}
