package assets

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Collection is a non-fungible item collection
type Collection struct {
	mu        sync.Mutex
	symbol    string
	owners    map[uint64]string
	approvals map[uint64]string
	operators map[string]map[string]bool
	nextID    uint64
}

// NewCollection creates an empty collection
func NewCollection(symbol string) *Collection {
	return &Collection{
		symbol:    symbol,
		owners:    make(map[uint64]string),
		approvals: make(map[uint64]string),
		operators: make(map[string]map[string]bool),
		nextID:    1,
	}
}

// Symbol returns the collection ticker
func (c *Collection) Symbol() string {
	return c.symbol
}

// Mint creates the next item for to and returns its ID
func (c *Collection) Mint(_ context.Context, to string) (uint64, error) {
	if to == "" {
		return 0, ErrInvalidAddress
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.owners[c.nextID] != "" {
		c.nextID++
	}
	id := c.nextID
	c.owners[id] = to
	c.nextID++
	return id, nil
}

// MintID creates a specific item for to
func (c *Collection) MintID(_ context.Context, to string, id uint64) error {
	if to == "" {
		return ErrInvalidAddress
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.owners[id]; ok {
		return fmt.Errorf("%w: %d", ErrItemExists, id)
	}
	c.owners[id] = to
	return nil
}

// OwnerOf returns the holder of item
func (c *Collection) OwnerOf(_ context.Context, item uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.owners[item]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownItem, item)
	}
	return owner, nil
}

// Approve lets spender transfer a single item; an empty spender clears it
func (c *Collection) Approve(_ context.Context, owner, spender string, item uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.owners[item]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownItem, item)
	}
	if current != owner {
		return ErrNotItemOwner
	}
	if spender == "" {
		delete(c.approvals, item)
		return nil
	}
	c.approvals[item] = spender
	return nil
}

// SetApprovalForAll lets operator move every item owner holds
func (c *Collection) SetApprovalForAll(_ context.Context, owner, operator string, approved bool) error {
	if owner == "" || operator == "" {
		return ErrInvalidAddress
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !approved {
		delete(c.operators[owner], operator)
		return nil
	}
	if c.operators[owner] == nil {
		c.operators[owner] = make(map[string]bool)
	}
	c.operators[owner][operator] = true
	return nil
}

// IsApproved reports whether spender may move item
func (c *Collection) IsApproved(_ context.Context, spender string, item uint64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.owners[item]
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownItem, item)
	}
	return c.mayMove(spender, owner, item), nil
}

func (c *Collection) mayMove(spender, owner string, item uint64) bool {
	return spender == owner || c.approvals[item] == spender || c.operators[owner][spender]
}

// TransferFrom moves item from its owner to to. Any single-item approval is cleared.
func (c *Collection) TransferFrom(_ context.Context, spender, from, to string, item uint64) error {
	if to == "" {
		return ErrInvalidAddress
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.owners[item]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownItem, item)
	}
	if owner != from {
		return ErrNotItemOwner
	}
	if !c.mayMove(spender, owner, item) {
		return ErrNotApproved
	}
	c.owners[item] = to
	delete(c.approvals, item)
	return nil
}

// ItemsOf lists items held by owner in ascending order
func (c *Collection) ItemsOf(owner string) []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var items []uint64
	for id, o := range c.owners {
		if o == owner {
			items = append(items, id)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })
	return items
}
