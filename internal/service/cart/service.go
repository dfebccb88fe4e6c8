package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
	"github.com/vladislavdragonenkov/glowup/internal/storage/kv"
)

// Service ведёт корзины пользователей и анонимных сессий в KV-хранилище.
// Каждая запись пересчитывает подытог и продлевает TTL корзины.
type Service struct {
	store  domain.KVStore
	logger *log.Entry
	now    func() time.Time
	newID  func() string

	// reads склеивает одновременные чтения одной корзины.
	reads singleflight.Group
}

// NewService создаёт сервис корзин.
func NewService(store domain.KVStore, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "cart")
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// WithClock подменяет источник времени.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Key возвращает ключ корзины; userId имеет приоритет над sessionId.
func Key(identity domain.Identity) string {
	if identity.UserID != "" {
		return "cart:user:" + identity.UserID
	}
	return "cart:session:" + identity.SessionID
}

// GetOrCreate возвращает корзину, создавая пустую при отсутствии.
func (s *Service) GetOrCreate(ctx context.Context, identity domain.Identity) (domain.Cart, error) {
	if err := identity.Validate(); err != nil {
		return domain.Cart{}, err
	}

	v, err, _ := s.reads.Do(Key(identity), func() (any, error) {
		return s.getOrCreate(ctx, identity)
	})
	if err != nil {
		return domain.Cart{}, err
	}

	cart := v.(domain.Cart)
	cart.Items = domain.CloneItems(cart.Items)
	return cart, nil
}

// AddItem добавляет товар; совпадающая строка (productId, variantId) увеличивается,
// иначе новая строка добавляется в начало.
func (s *Service) AddItem(ctx context.Context, identity domain.Identity, input domain.AddCartItemInput) (domain.Cart, error) {
	if err := identity.Validate(); err != nil {
		return domain.Cart{}, err
	}
	if err := input.Validate(); err != nil {
		return domain.Cart{}, err
	}

	cart, err := s.getOrCreate(ctx, identity)
	if err != nil {
		return domain.Cart{}, err
	}

	qty := int64(1)
	if input.Quantity != nil && *input.Quantity > 1 {
		qty = *input.Quantity
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].SameProduct(input.ProductID, input.VariantID) {
			cart.Items[i].Quantity += qty
			merged = true
			break
		}
	}
	if !merged {
		line := domain.CartItem{
			ID:        s.newID(),
			ProductID: input.ProductID,
			VariantID: input.VariantID,
			Title:     input.Title,
			Price:     input.Price,
			Quantity:  qty,
			ImageURL:  input.ImageURL,
			AddedAt:   s.now().UnixMilli(),
		}
		cart.Items = append([]domain.CartItem{line}, cart.Items...)
	}

	return s.write(ctx, identity, cart)
}

// UpdateItem устанавливает количество строки. Количество меньше 1 удаляет строку,
// неизвестный id оставляет корзину без изменений.
func (s *Service) UpdateItem(ctx context.Context, identity domain.Identity, input domain.UpdateCartItemInput) (domain.Cart, error) {
	if err := identity.Validate(); err != nil {
		return domain.Cart{}, err
	}

	cart, err := s.getOrCreate(ctx, identity)
	if err != nil {
		return domain.Cart{}, err
	}

	idx := indexOf(cart.Items, input.ID)
	if idx < 0 {
		return cart, nil
	}
	if input.Quantity != nil {
		if *input.Quantity < 1 {
			cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		} else {
			cart.Items[idx].Quantity = *input.Quantity
		}
	}
	return s.write(ctx, identity, cart)
}

// RemoveItem удаляет строку по идентификатору.
func (s *Service) RemoveItem(ctx context.Context, identity domain.Identity, itemID string) (domain.Cart, error) {
	if err := identity.Validate(); err != nil {
		return domain.Cart{}, err
	}

	cart, err := s.getOrCreate(ctx, identity)
	if err != nil {
		return domain.Cart{}, err
	}

	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	cart.Items = kept
	return s.write(ctx, identity, cart)
}

// Clear удаляет корзину целиком.
func (s *Service) Clear(ctx context.Context, identity domain.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}
	return s.store.Del(ctx, Key(identity))
}

// Merge переносит строки корзины сессии в корзину пользователя после входа.
// Совпадающие строки суммируются, остальные добавляются в конец; корзина сессии
// удаляется только после записи корзины пользователя.
// Повторный вызов после слияния ничего не меняет: корзины сессии уже нет.
func (s *Service) Merge(ctx context.Context, userID, sessionID string) (domain.Cart, error) {
	userIdentity := domain.Identity{UserID: userID}
	if err := userIdentity.Validate(); err != nil {
		return domain.Cart{}, err
	}

	userCart, err := s.getOrCreate(ctx, userIdentity)
	if err != nil {
		return domain.Cart{}, err
	}
	if sessionID == "" {
		return userCart, nil
	}

	sessionIdentity := domain.Identity{SessionID: sessionID}
	var sessionCart domain.Cart
	found, err := kv.GetJSON(ctx, s.store, Key(sessionIdentity), &sessionCart)
	if err != nil {
		return domain.Cart{}, err
	}
	if !found || len(sessionCart.Items) == 0 {
		return userCart, nil
	}

	for _, item := range sessionCart.Items {
		if idx := indexOfProduct(userCart.Items, item); idx >= 0 {
			userCart.Items[idx].Quantity += item.Quantity
			continue
		}
		userCart.Items = append(userCart.Items, item)
	}

	merged, err := s.write(ctx, userIdentity, userCart)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := s.store.Del(ctx, Key(sessionIdentity)); err != nil {
		return domain.Cart{}, err
	}

	s.logger.WithFields(log.Fields{
		"user_id":    userID,
		"session_id": sessionID,
		"lines":      len(sessionCart.Items),
	}).Info("session cart merged")

	return merged, nil
}

func (s *Service) getOrCreate(ctx context.Context, identity domain.Identity) (domain.Cart, error) {
	var cart domain.Cart
	found, err := kv.GetJSON(ctx, s.store, Key(identity), &cart)
	if err != nil {
		return domain.Cart{}, err
	}
	if !found {
		cart = domain.Cart{
			ID:        Key(identity),
			UserID:    identity.UserID,
			SessionID: identity.SessionID,
			Items:     []domain.CartItem{},
			Currency:  domain.CurrencyKES,
		}
	}
	return s.write(ctx, identity, cart)
}

func (s *Service) write(ctx context.Context, identity domain.Identity, cart domain.Cart) (domain.Cart, error) {
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	cart.Subtotal = domain.SumItems(cart.Items)
	cart.UpdatedAt = s.now().UnixMilli()

	if err := kv.SetJSON(ctx, s.store, Key(identity), cart, domain.CartTTL); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

func indexOf(items []domain.CartItem, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func indexOfProduct(items []domain.CartItem, probe domain.CartItem) int {
	for i, item := range items {
		if item.SameProduct(probe.ProductID, probe.VariantID) {
			return i
		}
	}
	return -1
}
