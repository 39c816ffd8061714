// Package repotest has in-memory repositories for service and handler tests.
// Transaction arguments are ignored.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/paywall/internal/model"
	"github.com/jmehdipour/paywall/internal/repository"
)

// NoTx runs fn without a transaction.
func NoTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

var _ repository.TxFunc = NoTx

type Contents struct {
	mu       sync.Mutex
	contents map[int64]model.Content
	accesses map[int64]model.Access
	next     int64
}

var _ repository.ContentsRepository = (*Contents)(nil)

func NewContents() *Contents {
	return &Contents{contents: map[int64]model.Content{}, accesses: map[int64]model.Access{}}
}

func (r *Contents) Create(_ context.Context, c *model.Content) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.contents {
		if x.Slug == c.Slug {
			return 0, repository.ErrDuplicate
		}
	}
	r.next++
	c.ID = r.next
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	r.contents[c.ID] = *c
	return c.ID, nil
}

func (r *Contents) Update(_ context.Context, c *model.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contents[c.ID]; !ok {
		return repository.ErrNotFound
	}
	r.contents[c.ID] = *c
	return nil
}

func (r *Contents) Publish(_ context.Context, id int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contents[id]
	if !ok || c.Published {
		return false, nil
	}
	c.Published = true
	c.PublishedAt = &at
	r.contents[id] = c
	return true, nil
}

func (r *Contents) GetByID(_ context.Context, id int64) (*model.Content, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *Contents) GetBySlug(_ context.Context, slug string) (*model.Content, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.contents {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Contents) List(_ context.Context, publishedOnly bool, limit, offset int) ([]model.Content, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Content{}
	for _, c := range r.contents {
		if publishedOnly && !c.Published {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return []model.Content{}, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Contents) InsertAccess(_ context.Context, _ *sqlx.Tx, a *model.Access) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	a.ID = r.next
	r.accesses[a.ID] = *a
	return a.ID, nil
}

func (r *Contents) GetAccess(_ context.Context, id int64) (*model.Access, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accesses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *Contents) GrantAccess(_ context.Context, _ *sqlx.Tx, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accesses[id]
	if !ok || a.Status != model.AccessPending {
		return false, nil
	}
	a.Status = model.AccessGranted
	r.accesses[id] = a
	return true, nil
}

type Payments struct {
	mu   sync.Mutex
	rows map[int64]model.Payment
	next int64
}

var _ repository.PaymentsRepository = (*Payments)(nil)

func NewPayments() *Payments {
	return &Payments{rows: map[int64]model.Payment{}}
}

func (r *Payments) Insert(_ context.Context, _ *sqlx.Tx, p *model.Payment) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	p.ID = r.next
	r.rows[p.ID] = *p
	return p.ID, nil
}

func (r *Payments) SetGatewayInfo(_ context.Context, id int64, gatewayID, checkoutURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.GatewayID = gatewayID
	p.CheckoutURL = checkoutURL
	r.rows[id] = p
	return nil
}

func (r *Payments) GetByGatewayID(_ context.Context, gatewayID string) (*model.Payment, error) {
	return r.find(func(p model.Payment) bool { return p.GatewayID == gatewayID })
}

func (r *Payments) GetByReference(_ context.Context, ref string) (*model.Payment, error) {
	return r.find(func(p model.Payment) bool { return p.Reference == ref })
}

func (r *Payments) find(match func(model.Payment) bool) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if match(p) {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Payments) UpdateStatus(_ context.Context, _ *sqlx.Tx, id int64, from, to model.PaymentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	r.rows[id] = p
	return true, nil
}

type Reviews struct {
	mu   sync.Mutex
	rows map[int64]model.Review
	next int64
}

var _ repository.ReviewsRepository = (*Reviews)(nil)

func NewReviews() *Reviews {
	return &Reviews{rows: map[int64]model.Review{}}
}

func (r *Reviews) Create(_ context.Context, rv *model.Review) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	rv.ID = r.next
	r.rows[rv.ID] = *rv
	return rv.ID, nil
}

func (r *Reviews) Get(_ context.Context, id int64) (*model.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rv, nil
}

func (r *Reviews) Approve(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.rows[id]
	if !ok || rv.Approved {
		return false, nil
	}
	rv.Approved = true
	r.rows[id] = rv
	return true, nil
}

func (r *Reviews) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return false, nil
	}
	delete(r.rows, id)
	return true, nil
}

func (r *Reviews) ListByContent(_ context.Context, contentID int64, approvedOnly bool) ([]model.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Review{}
	for _, rv := range r.rows {
		if rv.ContentID == contentID && (!approvedOnly || rv.Approved) {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type Contacts struct {
	mu   sync.Mutex
	Rows []model.ContactMessage
}

var _ repository.ContactsRepository = (*Contacts)(nil)

func (r *Contacts) Create(_ context.Context, m *model.ContactMessage) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = int64(len(r.Rows) + 1)
	r.Rows = append(r.Rows, *m)
	return m.ID, nil
}
