package setting

import (
	"context"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/audit"
)

type (
	Repository interface {
		QuerySettings(ctx context.Context, exec ...core.DBExecutor) (map[string]string, error)
		UpsertSettings(ctx context.Context, values map[string]string, exec ...core.DBExecutor) error
		CountSettings(ctx context.Context, exec ...core.DBExecutor) (int, error)
	}

	ServiceInterface interface {
		List(ctx context.Context) (Listing, error)
		Update(ctx context.Context, values map[string]string) (map[string]string, error)
		Get(ctx context.Context, key string) (string, error)
		GetThreshold(ctx context.Context, key string) (float64, error)
		Seed(ctx context.Context) error
	}

	Service struct {
		repo     Repository
		auditor  audit.Recorder
		logger   core.Logger
		defaults map[string]string
		cache    *lru.Cache[string, string]
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, auditor audit.Recorder, logger core.Logger, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		core.IsNotNil(repo, "repo"),
		core.IsNotNil(auditor, "auditor"),
		core.IsNotNil(logger, "logger"),
		core.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	size := conf.Setting.CacheSize
	if size < 1 {
		size = len(AllowedKeys)
	}
	cache, err := lru.New[string, string](size)
	if err != nil { // only on a non-positive size
		panic(err)
	}
	return &Service{
		repo:     repo,
		auditor:  auditor,
		logger:   logger,
		defaults: Defaults(conf.Warning),
		cache:    cache,
	}
}

func (svc *Service) List(ctx context.Context) (Listing, error) {
	stored, err := svc.repo.QuerySettings(ctx)
	if err != nil {
		return Listing{}, core.NewPersistenceFailure("querying settings", err)
	}
	values := make(map[string]string, len(AllowedKeys))
	meta := make(map[string]string, len(AllowedKeys))
	for _, key := range AllowedKeys {
		values[key] = stored[key]
		meta[key] = Labels[key]
	}
	return Listing{Values: values, Meta: meta}, nil
}

// Update upserts the allowed keys of values and ignores the others; it returns what was written.
func (svc *Service) Update(ctx context.Context, values map[string]string) (map[string]string, error) {
	changed := make(map[string]string, len(values))
	for key, val := range values {
		if IsAllowed(key) {
			changed[key] = core.CleanString(val)
		}
	}
	if len(changed) == 0 {
		return changed, nil
	}

	if err := svc.repo.UpsertSettings(ctx, changed); err != nil {
		return nil, core.NewPersistenceFailure("updating settings", err)
	}
	svc.cache.Purge()
	svc.auditor.Record(ctx, "settings.update", changed, "system_config")
	return changed, nil
}

// Get returns the stored value of key ("" when unset), reading through the cache.
func (svc *Service) Get(ctx context.Context, key string) (string, error) {
	if val, ok := svc.cache.Get(key); ok {
		return val, nil
	}
	stored, err := svc.repo.QuerySettings(ctx)
	if err != nil {
		return "", core.NewPersistenceFailure("querying settings", err)
	}
	for k, v := range stored {
		svc.cache.Add(k, v)
	}
	return stored[key], nil
}

// GetThreshold parses the stored value of key as a number.
// Unset or unparsable values fall back to the default, which is logged.
func (svc *Service) GetThreshold(ctx context.Context, key string) (float64, error) {
	val, err := svc.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f, nil
		}
		svc.logger.Warn("invalid numeric setting "+key+", using default", errors.Wrap(err, "parsing "+val))
	}
	def, ok := svc.defaults[key]
	if !ok {
		return 0, errors.Errorf("no default for setting %q", key)
	}
	return strconv.ParseFloat(def, 64)
}

// Seed writes the defaults when no setting is stored yet.
func (svc *Service) Seed(ctx context.Context) error {
	count, err := svc.repo.CountSettings(ctx)
	if err != nil {
		return core.NewPersistenceFailure("counting settings", err)
	}
	if count > 0 {
		return nil
	}
	if err = svc.repo.UpsertSettings(ctx, svc.defaults); err != nil {
		return core.NewPersistenceFailure("seeding settings", err)
	}
	svc.cache.Purge()
	return nil
}
