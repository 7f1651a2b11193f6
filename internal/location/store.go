package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend-meetspot/internal/db"
	"backend-meetspot/internal/shared/apperr"
	"backend-meetspot/internal/shared/geo"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// Store persists the detailed document, its short projection and the history log.
// Every write of a detailed document also rewrites the short projection.
type Store struct {
	db db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{db: q}
}

func (s *Store) q(ctx context.Context) db.Querier {
	return db.QuerierFromCtx(ctx, s.db)
}

func (s *Store) Get(ctx context.Context, id string) (Detailed, error) {
	var (
		raw     []byte
		version int64
	)
	err := s.q(ctx).QueryRow(ctx, `SELECT doc, version FROM locations WHERE id=$1`, id).Scan(&raw, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return Detailed{}, fmt.Errorf("%w: %s", apperr.ErrLocationDoesNotExist, id)
	}
	if err != nil {
		return Detailed{}, err
	}
	return decodeDetailed(raw, version)
}

func (s *Store) GetBulk(ctx context.Context, ids []string) ([]Detailed, error) {
	rows, err := s.q(ctx).Query(ctx, `SELECT doc, version FROM locations WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return collectDetailed(rows)
}

// Insert writes a new location and its short projection.
func (s *Store) Insert(ctx context.Context, d Detailed) (Detailed, error) {
	doc, err := json.Marshal(d)
	if err != nil {
		return Detailed{}, err
	}
	d.Version = 1
	_, err = s.q(ctx).Exec(ctx, `
		INSERT INTO locations (id, doc, location, activity_types, osm_id, version)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3,$4), 4326)::geography, $5, $6, $7)
	`, d.ID, doc, d.Location.Lng, d.Location.Lat, d.ActivityTypes, d.OSMID, d.Version)
	if err != nil {
		return Detailed{}, err
	}
	if err := s.writeShort(ctx, ShortFrom(d)); err != nil {
		return Detailed{}, err
	}
	return d, nil
}

// Save overwrites an existing location when its version still matches d.Version,
// then regenerates the short projection.
func (s *Store) Save(ctx context.Context, d Detailed) (Detailed, error) {
	doc, err := json.Marshal(d)
	if err != nil {
		return Detailed{}, err
	}
	tag, err := s.q(ctx).Exec(ctx, `
		UPDATE locations
		SET doc=$3, location=ST_SetSRID(ST_MakePoint($4,$5), 4326)::geography,
		    activity_types=$6, version=version+1
		WHERE id=$1 AND version=$2
	`, d.ID, d.Version, doc, d.Location.Lng, d.Location.Lat, d.ActivityTypes)
	if err != nil {
		return Detailed{}, err
	}
	if tag.RowsAffected() == 0 {
		return Detailed{}, fmt.Errorf("%w: location %s", apperr.ErrConcurrentModification, d.ID)
	}
	d.Version++
	if err := s.writeShort(ctx, ShortFrom(d)); err != nil {
		return Detailed{}, err
	}
	return d, nil
}

func (s *Store) writeShort(ctx context.Context, short Short) error {
	doc, err := json.Marshal(short)
	if err != nil {
		return err
	}
	_, err = s.q(ctx).Exec(ctx, `
		INSERT INTO locations_short (id, doc, location, activity_types)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3,$4), 4326)::geography, $5)
		ON CONFLICT (id) DO UPDATE
		SET doc=EXCLUDED.doc, location=EXCLUDED.location, activity_types=EXCLUDED.activity_types
	`, short.ID, doc, short.Location.Lng, short.Location.Lat, short.ActivityTypes)
	return err
}

func (s *Store) OSMIDExists(ctx context.Context, osmID int64) (bool, error) {
	var ok bool
	err := s.q(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM locations WHERE osm_id=$1)`, osmID).Scan(&ok)
	return ok, err
}

// InBBox returns short projections inside the box, optionally filtered by activity.
func (s *Store) InBBox(ctx context.Context, box geo.BBox, activities []string) ([]Short, error) {
	query := db.Builder().
		Select("doc").
		From("locations_short").
		Where(squirrel.Expr("location && ST_MakeEnvelope(?, ?, ?, ?, 4326)::geography", box.West, box.South, box.East, box.North))
	if len(activities) > 0 {
		query = query.Where(squirrel.Expr("activity_types && ?", activities))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shorts := []Short{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var short Short
		if err := json.Unmarshal(raw, &short); err != nil {
			return nil, fmt.Errorf("decode short location: %w", err)
		}
		shorts = append(shorts, short)
	}
	return shorts, rows.Err()
}

// AroundQuery selects detailed locations nearest to Center.
type AroundQuery struct {
	Center     geo.Point
	RadiusKm   *float64
	Activities []string
	Limit      uint64
}

func (s *Store) Around(ctx context.Context, aq AroundQuery) ([]Detailed, error) {
	point := "ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography"
	query := db.Builder().
		Select("doc", "version").
		From("locations").
		OrderByClause("location <-> "+point, aq.Center.Lng, aq.Center.Lat).
		Limit(aq.Limit)
	if aq.RadiusKm != nil {
		query = query.Where(squirrel.Expr("ST_DWithin(location, "+point+", ?)", aq.Center.Lng, aq.Center.Lat, *aq.RadiusKm*1000))
	}
	if len(aq.Activities) > 0 {
		query = query.Where(squirrel.Expr("activity_types && ?", aq.Activities))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collectDetailed(rows)
}

func (s *Store) AppendHistory(ctx context.Context, e HistoryEntry) error {
	doc, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = s.q(ctx).Exec(ctx, `
		INSERT INTO location_history (id, location_id, user_id, created_at, doc)
		VALUES ($1,$2,$3,$4,$5)
	`, e.ID, e.LocationID, e.UserID, e.Date, doc)
	return err
}

// History returns entries newest first.
func (s *Store) History(ctx context.Context, locationID string, offset, limit int) ([]HistoryEntry, error) {
	rows, err := s.q(ctx).Query(ctx, `
		SELECT doc FROM location_history
		WHERE location_id=$1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, locationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e HistoryEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) HistoryEntryExists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := s.q(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM location_history WHERE id=$1)`, id).Scan(&ok)
	return ok, err
}

func (s *Store) CountOpenReports(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.q(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM location_update_reports WHERE user_id=$1 AND resolved=false
	`, userID).Scan(&n)
	return n, err
}

func (s *Store) InsertReport(ctx context.Context, r UpdateReport) error {
	_, err := s.q(ctx).Exec(ctx, `
		INSERT INTO location_update_reports (id, user_id, update_id, reason, created_at, resolved)
		VALUES ($1,$2,$3,$4,$5,false)
	`, r.ID, r.UserID, r.UpdateID, r.Reason, r.Date)
	return err
}

func decodeDetailed(raw []byte, version int64) (Detailed, error) {
	var d Detailed
	if err := json.Unmarshal(raw, &d); err != nil {
		return Detailed{}, fmt.Errorf("decode location: %w", err)
	}
	if d.Tags == nil {
		d.Tags = map[string]string{}
	}
	d.Version = version
	return d, nil
}

func collectDetailed(rows pgx.Rows) ([]Detailed, error) {
	defer rows.Close()
	out := []Detailed{}
	for rows.Next() {
		var (
			raw     []byte
			version int64
		)
		if err := rows.Scan(&raw, &version); err != nil {
			return nil, err
		}
		d, err := decodeDetailed(raw, version)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
