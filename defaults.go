package synckv

const (
	defaultName    = "SyncStorageDB"
	defaultWorkers = 4
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// withDefaults fills the zero fields of o. Store, Policy, Seed and the
// booleans have meaningful zero values and are left alone.
func (o Options) withDefaults() Options {
	o.Name = coalesce(o.Name, defaultName)
	o.Workers = coalesce(o.Workers, defaultWorkers)
	o.Logger = coalesce[Logger](o.Logger, NopLogger{})
	o.Hooks = coalesce[Hooks](o.Hooks, NopHooks{})
	if o.OpTimeout < 0 {
		o.OpTimeout = 0
	}
	return o
}
