package client

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/virtuallib/catalog-service/internal/model"
)

const recentPickupsLimit = 5

// Dashboard is the teacher view of the reservation queue.
type Dashboard struct {
	Pending []model.Reservation
	// RecentPickups holds at most the 5 most recent picked-up reservations.
	RecentPickups []model.Reservation
	Expired       []model.Reservation
}

// BuildDashboard splits a newest-first reservation list by status and caps
// recent pickups.
func BuildDashboard(reservations []model.Reservation) Dashboard {
	var d Dashboard
	for _, r := range reservations {
		switch r.Status {
		case model.StatusPending:
			d.Pending = append(d.Pending, r)
		case model.StatusPickedUp:
			if len(d.RecentPickups) < recentPickupsLimit {
				d.RecentPickups = append(d.RecentPickups, r)
			}
		case model.StatusExpired:
			d.Expired = append(d.Expired, r)
		}
	}
	return d
}

// FetchDashboard loads all reservations and groups them for the teacher view.
func (c *Client) FetchDashboard(ctx context.Context) (Dashboard, error) {
	reservations, err := c.ListReservations(ctx, ReservationQuery{})
	if err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(reservations), nil
}

// Catalog is the browse view state: the full book list plus genre choices.
type Catalog struct {
	Books  []model.Book
	Genres []string
}

// RefreshCatalog re-fetches books and genres after a mutation. Both
// collections load concurrently; consistency comes from re-fetching, not
// from patching local state.
func (c *Client) RefreshCatalog(ctx context.Context, q BookQuery) (Catalog, error) {
	var cat Catalog
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		books, err := c.ListBooks(ctx, q)
		if err != nil {
			return err
		}
		cat.Books = books
		return nil
	})
	g.Go(func() error {
		genres, err := c.ListGenres(ctx)
		if err != nil {
			return err
		}
		cat.Genres = genres
		return nil
	})
	if err := g.Wait(); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}
