package assets

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Book indexes the native bank, tokens and collections by symbol
type Book struct {
	mu          sync.RWMutex
	native      *NativeBank
	tokens      map[string]*Token
	collections map[string]*Collection
}

// NewBook creates a book with an empty native bank
func NewBook() *Book {
	return &Book{
		native:      NewNativeBank(),
		tokens:      make(map[string]*Token),
		collections: make(map[string]*Collection),
	}
}

// Native returns the native currency bank
func (b *Book) Native() *NativeBank {
	return b.native
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// CreateToken registers a new fungible token
func (b *Book) CreateToken(symbol string) (*Token, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.exists(symbol) {
		return nil, fmt.Errorf("%w: %s", ErrAssetExists, symbol)
	}
	t := NewToken(symbol)
	b.tokens[symbol] = t
	return t, nil
}

// CreateCollection registers a new item collection
func (b *Book) CreateCollection(symbol string) (*Collection, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.exists(symbol) {
		return nil, fmt.Errorf("%w: %s", ErrAssetExists, symbol)
	}
	c := NewCollection(symbol)
	b.collections[symbol] = c
	return c, nil
}

func (b *Book) exists(symbol string) bool {
	_, tok := b.tokens[symbol]
	_, col := b.collections[symbol]
	return tok || col
}

// Token looks up a fungible token by symbol
func (b *Book) Token(symbol string) (*Token, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tokens[normalizeSymbol(symbol)]
	if !ok {
		return nil, fmt.Errorf("%w: token %s", ErrUnknownAsset, symbol)
	}
	return t, nil
}

// Collection looks up an item collection by symbol
func (b *Book) Collection(symbol string) (*Collection, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.collections[normalizeSymbol(symbol)]
	if !ok {
		return nil, fmt.Errorf("%w: collection %s", ErrUnknownAsset, symbol)
	}
	return c, nil
}

// EnsureToken returns the token for symbol, creating it if needed
func (b *Book) EnsureToken(symbol string) (*Token, error) {
	if t, err := b.Token(symbol); err == nil {
		return t, nil
	}
	t, err := b.CreateToken(symbol)
	if err != nil {
		// lost a creation race
		return b.Token(symbol)
	}
	return t, nil
}

// Symbols lists registered token and collection symbols
func (b *Book) Symbols() (tokens, collections []string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.tokens {
		tokens = append(tokens, s)
	}
	for s := range b.collections {
		collections = append(collections, s)
	}
	sort.Strings(tokens)
	sort.Strings(collections)
	return tokens, collections
}
