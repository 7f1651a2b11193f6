package offer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend-meetspot/internal/db"
	"backend-meetspot/internal/shared/apperr"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// Store keeps offers as JSONB documents. The columns next to doc mirror the
// fields candidate queries filter on.
type Store struct {
	db db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{db: q}
}

func (s *Store) q(ctx context.Context) db.Querier {
	return db.QuerierFromCtx(ctx, s.db)
}

func (s *Store) Insert(ctx context.Context, o Offer) (Offer, error) {
	doc, err := json.Marshal(o)
	if err != nil {
		return Offer{}, err
	}
	o.Version = 1
	_, err = s.q(ctx).Exec(ctx, `
		INSERT INTO offers (id, doc, host_id, status, visibility, activities, decoy, reach_km, blur_km, location_id, participant_ids, version)
		VALUES ($1, $2, $3, $4, $5, $6, ST_SetSRID(ST_MakePoint($7,$8), 4326)::geography, $9, $10, $11, $12, $13)
	`, o.ID, doc, o.Host.ID, string(o.Status), string(o.Visibility), o.Activities,
		o.Blurred.Center.Lng, o.Blurred.Center.Lat, o.VisibilityRadiusKm, o.Blurred.RadiusKm,
		locationID(o), participantIDs(o), o.Version)
	if err != nil {
		return Offer{}, err
	}
	return o, nil
}

func (s *Store) Get(ctx context.Context, id string) (Offer, error) {
	var (
		raw     []byte
		version int64
	)
	err := s.q(ctx).QueryRow(ctx, `SELECT doc, version FROM offers WHERE id=$1`, id).Scan(&raw, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return Offer{}, fmt.Errorf("%w: %s", apperr.ErrOfferDoesNotExist, id)
	}
	if err != nil {
		return Offer{}, err
	}
	return decodeOffer(raw, version)
}

func (s *Store) GetBulk(ctx context.Context, ids []string) ([]Offer, error) {
	rows, err := s.q(ctx).Query(ctx, `SELECT doc, version FROM offers WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return collectOffers(rows)
}

// Save overwrites the offer when its version still matches o.Version.
func (s *Store) Save(ctx context.Context, o Offer) (Offer, error) {
	doc, err := json.Marshal(o)
	if err != nil {
		return Offer{}, err
	}
	tag, err := s.q(ctx).Exec(ctx, `
		UPDATE offers
		SET doc=$3, status=$4, participant_ids=$5, version=version+1
		WHERE id=$1 AND version=$2
	`, o.ID, o.Version, doc, string(o.Status), participantIDs(o))
	if err != nil {
		return Offer{}, err
	}
	if tag.RowsAffected() == 0 {
		return Offer{}, fmt.Errorf("%w: offer %s", apperr.ErrConcurrentModification, o.ID)
	}
	o.Version++
	return o, nil
}

func (s *Store) Delete(ctx context.Context, id string, version int64) error {
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM offers WHERE id=$1 AND version=$2`, id, version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: offer %s", apperr.ErrConcurrentModification, id)
	}
	return nil
}

// ForUser returns every offer the user hosts or takes part in, newest first.
func (s *Store) ForUser(ctx context.Context, userID string) ([]Offer, error) {
	rows, err := s.q(ctx).Query(ctx, `
		SELECT doc, version FROM offers
		WHERE $1 = ANY(participant_ids)
		ORDER BY (doc->>'creation_date') DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return collectOffers(rows)
}

// Candidates pre-filters offers in SQL with the base predicate and the
// decoy-based area conditions of q. Matcher.Discoverable remains authoritative.
func (s *Store) Candidates(ctx context.Context, q Query) ([]Offer, error) {
	query := db.Builder().
		Select("doc", "version").
		From("offers").
		Where(squirrel.Eq{"status": string(StatusOpen), "visibility": string(VisibilityPublic)}).
		Where(squirrel.NotEq{"host_id": q.RequesterID})

	point := "ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography"
	if q.Origin != nil {
		query = query.Where(squirrel.Expr("ST_DWithin(decoy, "+point+", (reach_km + blur_km) * 1000)", q.Origin.Lng, q.Origin.Lat))
		if q.RadiusKm != nil {
			query = query.Where(squirrel.Expr("ST_DWithin(decoy, "+point+", (? + blur_km) * 1000)", q.Origin.Lng, q.Origin.Lat, *q.RadiusKm))
		}
	}
	if q.BBox != nil {
		query = query.Where(squirrel.Expr("decoy && ST_MakeEnvelope(?, ?, ?, ?, 4326)::geography", q.BBox.West, q.BBox.South, q.BBox.East, q.BBox.North))
	}
	if q.LocationID != "" {
		query = query.Where(squirrel.Eq{"location_id": q.LocationID})
	}
	if len(q.Activities) > 0 {
		query = query.Where(squirrel.Expr("activities && ?", q.Activities))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collectOffers(rows)
}

func locationID(o Offer) *string {
	if o.Location == nil || o.Location.LocationID == "" {
		return nil
	}
	id := o.Location.LocationID
	return &id
}

func participantIDs(o Offer) []string {
	ids := make([]string, 0, len(o.Participants))
	for _, p := range o.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

func decodeOffer(raw []byte, version int64) (Offer, error) {
	var o Offer
	if err := json.Unmarshal(raw, &o); err != nil {
		return Offer{}, fmt.Errorf("decode offer: %w", err)
	}
	o.Version = version
	return o, nil
}

func collectOffers(rows pgx.Rows) ([]Offer, error) {
	defer rows.Close()
	out := []Offer{}
	for rows.Next() {
		var (
			raw     []byte
			version int64
		)
		if err := rows.Scan(&raw, &version); err != nil {
			return nil, err
		}
		o, err := decodeOffer(raw, version)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
