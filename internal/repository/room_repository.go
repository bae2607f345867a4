package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/unitutor-api/internal/models"
)

// RoomRepository persists the room registry.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs the repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

const roomColumns = `id, name, building, floor, capacity, type, facilities, active, created_by, created_at, updated_at`

var roomSorts = map[string]string{
	"name":       "name",
	"building":   "building",
	"capacity":   "capacity",
	"created_at": "created_at",
}

// List returns rooms matching filter and the total count before pagination.
func (r *RoomRepository) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error) {
	var w whereBuilder
	if filter.Building != "" {
		w.add("LOWER(building) = LOWER(?)", filter.Building)
	}
	if filter.Type != "" {
		w.add("type = ?", filter.Type)
	}
	if filter.MinCapacity > 0 {
		w.add("capacity >= ?", filter.MinCapacity)
	}
	if filter.Facility != "" {
		w.add("? = ANY(facilities)", strings.ToLower(filter.Facility))
	}
	if filter.Active != nil {
		w.add("active = ?", *filter.Active)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		w.add("(LOWER(name) LIKE ? OR LOWER(building) LIKE ?)", pattern, pattern)
	}

	sortBy, ok := roomSorts[filter.SortBy]
	if !ok {
		sortBy = "name"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "DESC" {
		sortOrder = "ASC"
	}
	limit, offset := paginate(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf("SELECT %s FROM rooms%s ORDER BY %s %s LIMIT %d OFFSET %d", roomColumns, w.clause(), sortBy, sortOrder, limit, offset)
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, listQuery, w.args...); err != nil {
		return nil, 0, fmt.Errorf("list rooms: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM rooms"+w.clause(), w.args...); err != nil {
		return nil, 0, fmt.Errorf("count rooms: %w", err)
	}
	return rooms, total, nil
}

// GetByID returns a room or sql.ErrNoRows.
func (r *RoomRepository) GetByID(ctx context.Context, id string) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return &room, nil
}

// Create inserts a room, assigning an id and timestamps.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	room.CreatedAt = now
	room.UpdatedAt = now

	const query = `INSERT INTO rooms (id, name, building, floor, capacity, type, facilities, active, created_by, created_at, updated_at)
VALUES (:id, :name, :building, :floor, :capacity, :type, :facilities, :active, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return translate(err, "create room")
	}
	return nil
}

// Update persists the mutable fields of a room.
func (r *RoomRepository) Update(ctx context.Context, room *models.Room) error {
	room.UpdatedAt = time.Now().UTC()
	const query = `UPDATE rooms SET name = :name, building = :building, floor = :floor, capacity = :capacity, type = :type,
facilities = :facilities, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, room)
	if err != nil {
		return translate(err, "update room")
	}
	return expectAffected(res)
}

// Delete removes a room; rooms referenced by meetings are rejected with ErrReferenced.
func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return translate(err, "delete room")
	}
	return expectAffected(res)
}

// CountMeetings returns how many meetings reference the room.
func (r *RoomRepository) CountMeetings(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM meetings WHERE room_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count room meetings: %w", err)
	}
	return count, nil
}

// ListAvailable returns active rooms without an active meeting overlapping [Start, End).
func (r *RoomRepository) ListAvailable(ctx context.Context, filter models.RoomAvailabilityFilter) ([]models.Room, error) {
	var w whereBuilder
	w.add("r.active = TRUE")
	w.add(`NOT EXISTS (SELECT 1 FROM meetings m WHERE m.room_id = r.id AND m.status = ANY(?) AND m.start_time < ? AND m.end_time > ?)`,
		statusArray(models.ActiveMeetingStatuses), filter.End, filter.Start)
	if filter.MinCapacity > 0 {
		w.add("r.capacity >= ?", filter.MinCapacity)
	}
	if filter.Type != "" {
		w.add("r.type = ?", filter.Type)
	}
	if filter.Building != "" {
		w.add("LOWER(r.building) = LOWER(?)", filter.Building)
	}

	query := `SELECT r.id, r.name, r.building, r.floor, r.capacity, r.type, r.facilities, r.active, r.created_by, r.created_at, r.updated_at
FROM rooms r` + w.clause() + ` ORDER BY r.capacity ASC, r.name ASC`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, w.args...); err != nil {
		return nil, fmt.Errorf("list available rooms: %w", err)
	}
	return rooms, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
