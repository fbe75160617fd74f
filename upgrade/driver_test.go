package upgrade_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/vocbase/script"
	"go.hackfix.me/vocbase/transaction"
	"go.hackfix.me/vocbase/upgrade"
)

func TestDriverStart(t *testing.T) {
	t.Parallel()

	type expFatal struct {
		class    upgrade.ErrorClass
		database string
		msg      string
		hint     string
	}

	tests := []struct {
		name         string
		upgrade      bool
		upgradeCheck bool
		gateErr      error
		results      map[string]scriptResult
		expCalls     []string
		expOutcomes  []upgrade.Outcome
		expFatal     *expFatal
		expPassed    bool
		expShutdown  bool
	}{
		{
			name:         "ok/check_all_up_to_date",
			upgradeCheck: true,
			expCalls:     []string{"_system", "a", "b"},
			expOutcomes: []upgrade.Outcome{
				upgrade.OutcomeSuccess, upgrade.OutcomeSuccess, upgrade.OutcomeSuccess,
			},
		},
		{
			name:         "ok/upgrade_all",
			upgrade:      true,
			upgradeCheck: true,
			expCalls:     []string{"_system", "a", "b"},
			expOutcomes: []upgrade.Outcome{
				upgrade.OutcomeSuccess, upgrade.OutcomeSuccess, upgrade.OutcomeSuccess,
			},
			expPassed:   true,
			expShutdown: true,
		},
		{
			name:     "ok/upgrade_check_disabled",
			expCalls: nil,
		},
		{
			name:         "err/check_needs_upgrade",
			upgradeCheck: true,
			results:      map[string]scriptResult{"a": {started: true}},
			expCalls:     []string{"_system", "a"},
			expOutcomes:  []upgrade.Outcome{upgrade.OutcomeSuccess, upgrade.OutcomeFailedControlled},
			expFatal: &expFatal{
				class:    upgrade.ClassMigration,
				database: "a",
				msg:      "database 'a' needs upgrade",
				hint:     "Please restart the server with the --database-upgrade option.",
			},
		},
		{
			name:         "err/upgrade_failed",
			upgrade:      true,
			upgradeCheck: true,
			results:      map[string]scriptResult{"a": {started: true}},
			expCalls:     []string{"_system", "a"},
			expOutcomes:  []upgrade.Outcome{upgrade.OutcomeSuccess, upgrade.OutcomeFailedControlled},
			expFatal: &expFatal{
				class:    upgrade.ClassMigration,
				database: "a",
				msg:      "database 'a' upgrade failed",
				hint:     "Please inspect the logs from the upgrade procedure.",
			},
		},
		{
			name:         "err/uncontrolled_failure",
			upgradeCheck: true,
			results:      map[string]scriptResult{"_system": {}},
			expCalls:     []string{"_system"},
			expOutcomes:  []upgrade.Outcome{upgrade.OutcomeFailedUncontrolled},
			expFatal: &expFatal{
				class:    upgrade.ClassInfrastructure,
				database: "_system",
				msg:      "uncontrolled engine error during server start",
			},
		},
		{
			name:         "err/uncontrolled_failure_in_upgrade_mode",
			upgrade:      true,
			upgradeCheck: true,
			results:      map[string]scriptResult{"b": {}},
			expCalls:     []string{"_system", "a", "b"},
			expOutcomes: []upgrade.Outcome{
				upgrade.OutcomeSuccess, upgrade.OutcomeSuccess, upgrade.OutcomeFailedUncontrolled,
			},
			expFatal: &expFatal{
				class:    upgrade.ClassInfrastructure,
				database: "b",
				msg:      "uncontrolled engine error during server start",
			},
		},
		{
			name:         "err/script_panics",
			upgradeCheck: true,
			results:      map[string]scriptResult{"a": {started: true, panics: true}},
			expCalls:     []string{"_system", "a"},
			expOutcomes:  []upgrade.Outcome{upgrade.OutcomeSuccess, upgrade.OutcomeFailedControlled},
			expFatal: &expFatal{
				class:    upgrade.ClassMigration,
				database: "a",
				msg:      "database 'a' needs upgrade",
				hint:     "Please restart the server with the --database-upgrade option.",
			},
		},
		{
			name:         "err/recovery_gate",
			upgrade:      true,
			upgradeCheck: true,
			gateErr:      errGate,
			expFatal: &expFatal{
				class: upgrade.ClassInfrastructure,
				msg:   "unable to finish WAL recovery procedure",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gate := &fakeGate{err: tt.gateErr}
			reg := newFakeRegistry("_system", "a", "b")
			scr := &recordingScript{results: tt.results}
			engine := script.NewEngine(discardLogger)
			contexts := transaction.NewRegistry(discardLogger)
			shutdowns := 0

			d, err := upgrade.New(gate, reg, &fakeCluster{}, scr,
				upgrade.WithUpgrade(tt.upgrade),
				upgrade.WithUpgradeCheck(tt.upgradeCheck),
				upgrade.WithLogger(discardLogger),
				upgrade.WithEngine(engine),
				upgrade.WithContexts(contexts),
				upgrade.WithShutdown(func() { shutdowns++ }),
			)
			require.NoError(t, err)
			assert.Equal(t, upgrade.StateIdle, d.State())

			res, err := d.Start(t.Context())
			require.NotNil(t, res)
			assert.Equal(t, 1, gate.opened)
			assert.Equal(t, tt.expCalls, scr.calls)
			assert.Equal(t, 0, engine.Depth())

			outcomes := make([]upgrade.Outcome, 0, len(res.Databases))
			for _, dr := range res.Databases {
				outcomes = append(outcomes, dr.Outcome)
			}
			if len(tt.expOutcomes) == 0 {
				assert.Empty(t, outcomes)
			} else {
				assert.Equal(t, tt.expOutcomes, outcomes)
			}

			if tt.expFatal != nil {
				require.Error(t, err)
				var ferr *upgrade.FatalError
				require.ErrorAs(t, err, &ferr)
				assert.Equal(t, tt.expFatal.class, ferr.Class)
				assert.Equal(t, tt.expFatal.database, ferr.Database)
				assert.EqualError(t, err, tt.expFatal.msg)
				assert.Equal(t, tt.expFatal.hint, ferr.Hint())
				if tt.gateErr != nil {
					assert.ErrorIs(t, err, tt.gateErr)
				}
				assert.Equal(t, upgrade.StateFatalAborted, d.State())
				assert.Equal(t, upgrade.StateFatalAborted, res.State)
				assert.False(t, res.UpgradePassed)
				assert.False(t, res.ShutdownRequested)
				assert.Equal(t, 0, shutdowns)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, upgrade.StateCompleted, d.State())
			assert.Equal(t, upgrade.StateCompleted, res.State)
			assert.Equal(t, tt.expPassed, res.UpgradePassed)
			assert.Equal(t, tt.expShutdown, res.ShutdownRequested)
			if tt.expShutdown {
				assert.Equal(t, 1, shutdowns)
			} else {
				assert.Equal(t, 0, shutdowns)
			}
		})
	}
}

func TestDriverInvocation(t *testing.T) {
	t.Parallel()

	reg := newFakeRegistry("_system", "a")
	scr := &recordingScript{}
	engine := script.NewEngine(discardLogger)
	contexts := transaction.NewRegistry(discardLogger)

	d, err := upgrade.New(&fakeGate{}, reg, &fakeCluster{}, scr,
		upgrade.WithUpgrade(true),
		upgrade.WithLogger(discardLogger),
		upgrade.WithEngine(engine),
		upgrade.WithContexts(contexts),
	)
	require.NoError(t, err)

	_, err = d.Start(t.Context())
	require.NoError(t, err)
	require.Len(t, scr.invs, 2)

	var rootID transaction.ScopeID
	for i, inv := range scr.invs {
		assert.Equal(t, reg.dbs[i], inv.Database)
		assert.Equal(t, 1, inv.Scope.Depth())
		assert.False(t, inv.Scope.Active())
		assert.True(t, inv.Args.Upgrade)

		args, ok := inv.Scope.Get(script.GlobalUpgradeArgs)
		require.True(t, ok)
		assert.Equal(t, script.Args{Upgrade: true}, args)

		// Scripts share the administrative context of the upgrade scope.
		assert.Equal(t, transaction.SharedReference, inv.Context.Ownership)
		assert.True(t, scr.global[i])
		assert.Equal(t, "_system", inv.Context.Database().Name())

		if i == 0 {
			rootID = inv.Scope.ID()
		}
		assert.Equal(t, rootID, inv.Scope.ID())
		assert.Equal(t, rootID, inv.Scope.Parent().ID())
	}

	assert.Nil(t, contexts.Global(rootID))
	assert.Equal(t, 1, reg.systemCalls)
	assert.Equal(t, 1, reg.dbCalls)
}

func TestDriverStartTwice(t *testing.T) {
	t.Parallel()

	scr := &recordingScript{}
	d, err := upgrade.New(&fakeGate{}, newFakeRegistry("_system"), &fakeCluster{}, scr,
		upgrade.WithLogger(discardLogger))
	require.NoError(t, err)

	_, err = d.Start(t.Context())
	require.NoError(t, err)

	res, err := d.Start(t.Context())
	assert.Nil(t, res)
	require.EqualError(t, err, "upgrade driver already started (state: completed)")
	assert.Len(t, scr.calls, 1)
}

func TestDriverExclusiveScope(t *testing.T) {
	t.Parallel()

	engine := script.NewEngine(discardLogger)
	reg := newFakeRegistry("_system", "a")
	busy, err := engine.Enter(reg.dbs[0], false, "console")
	require.NoError(t, err)

	scr := &recordingScript{}
	d, err := upgrade.New(&fakeGate{}, reg, &fakeCluster{}, scr,
		upgrade.WithLogger(discardLogger), upgrade.WithEngine(engine))
	require.NoError(t, err)

	_, err = d.Start(t.Context())
	var ferr *upgrade.FatalError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, upgrade.ClassInfrastructure, ferr.Class)
	assert.Empty(t, scr.calls)
	assert.Equal(t, upgrade.StateFatalAborted, d.State())

	require.NoError(t, engine.Exit(busy))
}

func TestDriverPrepare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		upgrade bool
	}{
		{name: "ok/upgrade", upgrade: true},
		{name: "ok/check"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reg := newFakeRegistry("_system")
			cl := &fakeCluster{}
			d, err := upgrade.New(&fakeGate{}, reg, cl, &recordingScript{},
				upgrade.WithUpgrade(tt.upgrade), upgrade.WithLogger(discardLogger))
			require.NoError(t, err)

			d.Prepare()

			assert.Equal(t, tt.upgrade, reg.applierDisabled)
			assert.Equal(t, tt.upgrade, reg.upgradeEnabled)
			assert.Equal(t, tt.upgrade, cl.disabled)
			assert.Equal(t, upgrade.StateIdle, d.State())
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("err/upgrade_without_check", func(t *testing.T) {
		t.Parallel()

		d, err := upgrade.New(&fakeGate{}, newFakeRegistry("_system"), &fakeCluster{},
			&recordingScript{}, upgrade.WithUpgrade(true), upgrade.WithUpgradeCheck(false))
		assert.Nil(t, d)
		require.ErrorIs(t, err, upgrade.ErrInvalidOptions)
	})

	t.Run("err/missing_collaborator", func(t *testing.T) {
		t.Parallel()

		d, err := upgrade.New(nil, newFakeRegistry("_system"), &fakeCluster{}, &recordingScript{})
		assert.Nil(t, d)
		require.Error(t, err)
	})
}

func TestValidateOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		upgrade, upgradeCheck bool
		expErr                bool
	}{
		{upgrade: false, upgradeCheck: false},
		{upgrade: false, upgradeCheck: true},
		{upgrade: true, upgradeCheck: true},
		{upgrade: true, upgradeCheck: false, expErr: true},
	}

	for _, tt := range tests {
		err := upgrade.ValidateOptions(tt.upgrade, tt.upgradeCheck)
		if tt.expErr {
			assert.ErrorIs(t, err, upgrade.ErrInvalidOptions)
		} else {
			assert.NoError(t, err)
		}
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, upgrade.OutcomeSuccess, upgrade.Classify(true, false))
	assert.Equal(t, upgrade.OutcomeSuccess, upgrade.Classify(true, true))
	assert.Equal(t, upgrade.OutcomeFailedControlled, upgrade.Classify(false, true))
	assert.Equal(t, upgrade.OutcomeFailedUncontrolled, upgrade.Classify(false, false))
}
