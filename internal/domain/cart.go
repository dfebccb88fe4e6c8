package domain

import "time"

// CurrencyKES — единственная валюта витрины.
const CurrencyKES = "KES"

// CartTTL — скользящий срок жизни корзины, продлевается при каждом обращении.
const CartTTL = 7 * 24 * time.Hour

// CartItem представляет строку корзины. Цена хранится целым числом в KES.
type CartItem struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	ImageURL  string `json:"imageUrl,omitempty"`
	AddedAt   int64  `json:"addedAt"`
}

// SameProduct сообщает, описывают ли строки одну и ту же пару (productId, variantId).
func (i CartItem) SameProduct(productID, variantID string) bool {
	return i.ProductID == productID && i.VariantID == variantID
}

// LineTotal возвращает стоимость строки.
func (i CartItem) LineTotal() int64 {
	return i.Price * i.Quantity
}

// Cart хранит корзину пользователя или анонимной сессии.
type Cart struct {
	// ID совпадает с ключом корзины в хранилище.
	ID        string     `json:"id"`
	UserID    string     `json:"userId,omitempty"`
	SessionID string     `json:"sessionId,omitempty"`
	Items     []CartItem `json:"items"`
	Currency  string     `json:"currency"`
	// Subtotal пересчитывается при каждой записи.
	Subtotal  int64 `json:"subtotal"`
	UpdatedAt int64 `json:"updatedAt"`
}

// Identity возвращает владельца корзины.
func (c *Cart) Identity() Identity {
	return Identity{UserID: c.UserID, SessionID: c.SessionID}
}

// AddCartItemInput описывает добавление товара в корзину.
type AddCartItemInput struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	ImageURL  string `json:"imageUrl,omitempty"`
	// Quantity по умолчанию 1, значения меньше 1 приводятся к 1.
	Quantity *int64 `json:"quantity,omitempty"`
}

// Validate проверяет обязательные поля.
func (in AddCartItemInput) Validate() error {
	if in.ProductID == "" || in.Title == "" || in.Price < 0 {
		return Validation("Invalid payload")
	}
	return nil
}

// UpdateCartItemInput задаёт абсолютное количество строки.
type UpdateCartItemInput struct {
	ID string `json:"id"`
	// Quantity < 1 удаляет строку; nil оставляет корзину без изменений.
	Quantity *int64 `json:"quantity,omitempty"`
}

// SumItems возвращает Σ price×quantity.
func SumItems(items []CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotal()
	}
	return total
}

// CloneItems возвращает независимую копию строк.
func CloneItems(items []CartItem) []CartItem {
	if items == nil {
		return []CartItem{}
	}
	out := make([]CartItem, len(items))
	copy(out, items)
	return out
}
