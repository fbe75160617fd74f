package cli

import (
	"fmt"

	actx "go.hackfix.me/vocbase/app/context"
	aerrors "go.hackfix.me/vocbase/app/errors"
)

// Create creates a new empty database. Its schema is initialized the next time
// the server starts.
type Create struct {
	Name string `arg:"" help:"Database name."`
}

// Run the create command.
func (c *Create) Run(appCtx *actx.Context) error {
	reg, err := openRegistry(appCtx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := reg.Close(); cerr != nil {
			appCtx.Logger.Error("failed closing databases", "error", cerr)
		}
	}()

	if _, err = reg.Create(c.Name); err != nil {
		return aerrors.NewRuntimeError(fmt.Sprintf("failed creating database '%s'", c.Name), err, "")
	}

	fmt.Fprintf(appCtx.Stdout, "Created database '%s'.\n", c.Name)

	return nil
}
