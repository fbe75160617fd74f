package cli

import (
	"fmt"
	"strconv"

	actx "go.hackfix.me/vocbase/app/context"
	aerrors "go.hackfix.me/vocbase/app/errors"
	"go.hackfix.me/vocbase/db"
	"go.hackfix.me/vocbase/db/migrator"
)

// Status shows the upgrade status of all databases. It never modifies a
// database.
type Status struct{}

// Run the status command.
func (c *Status) Run(appCtx *actx.Context) error {
	reg, err := openRegistry(appCtx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := reg.Close(); cerr != nil {
			appCtx.Logger.Error("failed closing databases", "error", cerr)
		}
	}()

	migrations, err := db.Migrations()
	if err != nil {
		return err
	}

	data := [][]string{}
	for _, d := range reg.Databases() {
		applied, err := migrator.Applied(appCtx.Ctx, d)
		if err != nil {
			return aerrors.NewRuntimeError(
				fmt.Sprintf("failed reading status of database '%s'", d.Name()), err, "")
		}
		plan := migrator.NewPlan(migrations, applied)

		lastApplied := "-"
		if n := len(plan.Applied); n > 0 {
			last := plan.Applied[n-1]
			lastApplied = last.AppliedAt.In(appCtx.TimeNow().Location()).Format("2006-01-02 15:04:05")
		}

		data = append(data, []string{
			d.Name(),
			strconv.Itoa(len(plan.Applied)),
			strconv.Itoa(len(plan.Pending)),
			planStatus(plan),
			lastApplied,
		})
	}

	header := []string{"Database", "Applied", "Pending", "Status", "Last Upgrade"}
	if err = renderTable(header, data, appCtx.Stdout, 1, 2); err != nil {
		return fmt.Errorf("failed rendering table: %w", err)
	}

	return nil
}

func planStatus(plan *migrator.Plan) string {
	switch {
	case len(plan.Unknown) > 0:
		return "newer version"
	case len(plan.Pending) == 0:
		return "up to date"
	case plan.Fresh():
		return "new"
	default:
		return "needs upgrade"
	}
}
