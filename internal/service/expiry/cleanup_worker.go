package expiry

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

const (
	defaultCleanupInterval  = 10 * time.Minute
	defaultCleanupBatchSize = 500
)

var (
	expiryCleanupRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glowup_expiry_cleanup_runs_total",
		Help: "Total number of expired key cleanup runs grouped by result.",
	}, []string{"result"})
	expiryCleanupDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glowup_expiry_cleanup_deleted_total",
		Help: "Total number of deleted expired keys grouped by key family.",
	}, []string{"family"})
	expiryCleanupLastDeleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "glowup_expiry_cleanup_last_deleted",
		Help: "Number of deleted keys during the last cleanup run.",
	})
)

// Семейства ключей витрины, по которым группируется статистика очистки.
const (
	FamilyCart    = "cart"    // гостевые и пользовательские корзины
	FamilyDraft   = "draft"   // черновики заказов с часовым TTL
	FamilyOrder   = "order"   // заказы и их индексы
	FamilyReturn  = "return"  // возвраты и заявки на возврат по заказу
	FamilyLoyalty = "loyalty" // счета, транзакции и холды баллов
	FamilyEvent   = "event"   // маркеры обработанных событий
	FamilyOther   = "other"
)

// familyPrefixes упорядочены так, что более длинный префикс проверяется раньше.
var familyPrefixes = []struct {
	prefix string
	family string
}{
	{"cart:", FamilyCart},
	{"order:draft:", FamilyDraft},
	{"order:", FamilyOrder},
	{"orders:", FamilyOrder},
	{"return:", FamilyReturn},
	{"loyalty:", FamilyLoyalty},
	{"event:", FamilyEvent},
}

// KeyFamily возвращает семейство, к которому относится ключ хранилища.
func KeyFamily(key string) string {
	for _, candidate := range familyPrefixes {
		if strings.HasPrefix(key, candidate.prefix) {
			return candidate.family
		}
	}
	return FamilyOther
}

// Purged хранит число удалённых ключей по семействам.
type Purged map[string]int

// Total возвращает общее число удалённых ключей.
func (p Purged) Total() int {
	total := 0
	for _, n := range p {
		total += n
	}
	return total
}

// Fields переводит статистику в поля лога в стабильном порядке.
func (p Purged) Fields() log.Fields {
	families := make([]string, 0, len(p))
	for family := range p {
		families = append(families, family)
	}
	sort.Strings(families)

	fields := log.Fields{"deleted": p.Total()}
	for _, family := range families {
		fields["purged_"+family] = p[family]
	}
	return fields
}

// CleanupOptions задает параметры воркера очистки истёкших ключей.
type CleanupOptions struct {
	Logger    *log.Entry
	Interval  time.Duration
	BatchSize int
}

// CleanupOption настраивает CleanupWorker.
type CleanupOption func(*CleanupOptions)

// WithLogger задает logger для воркера.
func WithLogger(logger *log.Entry) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Logger = logger
	}
}

// WithInterval задает интервал между cleanup-циклами.
func WithInterval(interval time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Interval = interval
	}
}

// WithBatchSize задает размер batch для одного удаления.
func WithBatchSize(batchSize int) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.BatchSize = batchSize
	}
}

// CleanupWorker периодически удаляет истёкшие ключи из хранилищ без собственного TTL.
type CleanupWorker struct {
	store     domain.ExpiringStore
	logger    *log.Entry
	interval  time.Duration
	batchSize int
}

// NewCleanupWorker создает воркер очистки истёкших ключей.
func NewCleanupWorker(store domain.ExpiringStore, options ...CleanupOption) *CleanupWorker {
	opts := CleanupOptions{
		Interval:  defaultCleanupInterval,
		BatchSize: defaultCleanupBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "expiry-cleanup-worker")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultCleanupInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultCleanupBatchSize
	}

	return &CleanupWorker{
		store:     store,
		logger:    logger,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.store == nil {
		w.logger.Warn("expiry cleanup worker is disabled: store is nil")
		return
	}

	w.cleanup(ctx, time.Now().UTC())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx, time.Now().UTC())
		}
	}
}

func (w *CleanupWorker) cleanup(ctx context.Context, before time.Time) {
	deleted, err := w.DeleteExpired(ctx, before)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		expiryCleanupRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("expiry cleanup run failed")
		return
	}

	expiryCleanupRunsTotal.WithLabelValues("ok").Inc()
	expiryCleanupLastDeleted.Set(float64(deleted.Total()))
	if deleted.Total() > 0 {
		w.logger.WithFields(deleted.Fields()).Info("expiry cleanup completed")
	}
}

// DeleteExpired удаляет все ключи, истёкшие к before, порциями batchSize,
// и возвращает разбивку удалённого по семействам ключей.
func (w *CleanupWorker) DeleteExpired(ctx context.Context, before time.Time) (Purged, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	purged := Purged{}
	for {
		if err := ctx.Err(); err != nil {
			return purged, err
		}

		keys, err := w.store.DeleteExpired(ctx, before, w.batchSize)
		if err != nil {
			return purged, err
		}

		for _, key := range keys {
			family := KeyFamily(key)
			purged[family]++
			expiryCleanupDeletedTotal.WithLabelValues(family).Inc()
		}

		if len(keys) < w.batchSize {
			break
		}
	}

	return purged, nil
}
