package config

import "mdrp-solver/internal/domain"

// Options is the one immutable configuration object threaded through every
// preprocessing component.
type Options struct {
	NodeTimeInterval float64

	GroupCouriersByOffTime bool
	GroupCouriersByOnTime bool

	OrderProportion float64
	Seed int64

	GlobalNodeIntervals bool

	AddValidInequalityConstraints bool
	AddVIRecursively bool

	LimitBundlesToSizeOne bool

	ConsiderObjective bool

	SequenceCacheDriver string // "sqlite" | "postgres" | "none"
	DatabaseURL string // postgres DSN, used when SequenceCacheDriver == "postgres"
	SqlitePath string // sqlite file path, used when SequenceCacheDriver == "sqlite"
	CutCacheRedisAddrs []string
	PaymentPolicyScript string
	SolverMethod string // "barrier" | "dual" | "primal"
}

// Default returns conservative defaults: up-front VI constraints are
// disabled, since enabling them by default would never converge a large
// instance, so recursive lazy separation is on, and bundles/objective are
// both fully enabled.
func Default() Options {
	return Options{
		NodeTimeInterval: 5,
		GroupCouriersByOffTime: true,
		GroupCouriersByOnTime: false,
		OrderProportion: 1,
		Seed: 0,
		GlobalNodeIntervals: true,
		AddValidInequalityConstraints: true,
		AddVIRecursively: true,
		LimitBundlesToSizeOne: false,
		ConsiderObjective: true,
		SequenceCacheDriver: "none",
		SqlitePath: "mdrp_cache.db",
		PaymentPolicyScript: "",
		SolverMethod: "dual",
	}
}

// FromEnv overlays environment-variable overrides onto Default.
func FromEnv() Options {
	o := Default()

	o.NodeTimeInterval = GetFloat("NODE_TIME_INTERVAL", o.NodeTimeInterval)
	o.GroupCouriersByOffTime = GetBool("GROUP_BY_OFF_TIME", o.GroupCouriersByOffTime)
	o.GroupCouriersByOnTime = GetBool("GROUP_BY_ON_TIME", o.GroupCouriersByOnTime)
	o.OrderProportion = GetFloat("ORDER_PROPORTION", o.OrderProportion)
	o.Seed = GetInt("SEED", o.Seed)
	o.GlobalNodeIntervals = GetBool("GLOBAL_NODE_INTERVALS", o.GlobalNodeIntervals)
	o.AddValidInequalityConstraints = GetBool("ADD_VI_CONSTRAINTS", o.AddValidInequalityConstraints)
	o.AddVIRecursively = GetBool("ADD_VI_RECURSIVELY", o.AddVIRecursively)
	o.LimitBundlesToSizeOne = GetBool("LIMIT_BUNDLES_TO_SIZE_ONE", o.LimitBundlesToSizeOne)
	o.ConsiderObjective = GetBool("CONSIDER_OBJECTIVE", o.ConsiderObjective)
	o.SequenceCacheDriver = Get("SEQUENCE_CACHE_DRIVER", o.SequenceCacheDriver)
	o.DatabaseURL = Get("DATABASE_URL", o.DatabaseURL)
	o.SqlitePath = Get("SQLITE_PATH", o.SqlitePath)
	o.CutCacheRedisAddrs = GetStringSlice("CUT_CACHE_REDIS_ADDRS", o.CutCacheRedisAddrs)
	o.PaymentPolicyScript = Get("PAYMENT_POLICY_SCRIPT", o.PaymentPolicyScript)
	o.SolverMethod = Get("SOLVER_METHOD", o.SolverMethod)

	return o
}

// GroupMode resolves the three-way switch from the two boolean knobs:
// by off-time only, by (on,off), or per-courier.
func (o Options) GroupMode() domain.GroupMode {
	switch {
		case o.GroupCouriersByOffTime && o.GroupCouriersByOnTime:
		return domain.GroupByOnOff
		case o.GroupCouriersByOffTime:
		return domain.GroupByOffTime
		default:
		return domain.GroupPerCourier
	}
}
