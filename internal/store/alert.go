package store

import (
	"database/sql"
	"time"
)

// TimestampLayout is the second-precision format alerts are stamped with.
const TimestampLayout = "2006-01-02 15:04:05"

// Alert represents one persisted relay attempt. Rows are append-only:
// they are never updated or deleted.
type Alert struct {
	ID            int64
	Timestamp     string
	Latitude      string
	Longitude     string
	BatteryLevel  string
	BatteryStatus string
	VideoURL      *string // nil when the attempt carried no video
}

// AlertRepository provides the append-only history of alerts.
type AlertRepository struct {
	db *sql.DB
}

// Alerts returns the alert repository for this store.
func (s *Store) Alerts() *AlertRepository {
	return &AlertRepository{db: s.db}
}

// Insert appends one alert and returns its auto-assigned id. Ids are
// monotonic; sqlite serializes the insert path so they stay gap-free
// under concurrent submissions.
func (r *AlertRepository) Insert(a *Alert) (int64, error) {
	if a.Timestamp == "" {
		a.Timestamp = time.Now().Format(TimestampLayout)
	}

	result, err := r.db.Exec(
		`INSERT INTO alerts (timestamp, latitude, longitude, battery_level, battery_status, video_url)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.Timestamp, a.Latitude, a.Longitude, a.BatteryLevel, a.BatteryStatus, a.VideoURL,
	)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	a.ID = id
	return id, nil
}

// ListAll retrieves every alert, most recent first.
func (r *AlertRepository) ListAll() ([]*Alert, error) {
	rows, err := r.db.Query(
		`SELECT id, timestamp, latitude, longitude, battery_level, battery_status, video_url
		 FROM alerts ORDER BY id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		a := &Alert{}
		var videoURL sql.NullString

		err := rows.Scan(&a.ID, &a.Timestamp, &a.Latitude, &a.Longitude, &a.BatteryLevel, &a.BatteryStatus, &videoURL)
		if err != nil {
			return nil, err
		}

		if videoURL.Valid {
			a.VideoURL = &videoURL.String
		}
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return alerts, nil
}
