package store

import (
	"database/sql"
	"fmt"

	"github.com/wagrab/wagrab/internal/models"
)

// defaultListLimit caps audit listings when the caller passes no limit.
const defaultListLimit = 100

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}

// scanInboundRows scans InboundRecords from sql.Rows.
func scanInboundRows(rows *sql.Rows) ([]models.InboundRecord, error) {
	var records []models.InboundRecord
	for rows.Next() {
		var rec models.InboundRecord
		if err := rows.Scan(&rec.MessageID, &rec.Sender, &rec.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan inbound record failed: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inbound records failed: %w", err)
	}
	return records, nil
}

// scanDeliveryRows scans DeliveryRecords from sql.Rows.
func scanDeliveryRows(rows *sql.Rows) ([]models.DeliveryRecord, error) {
	var records []models.DeliveryRecord
	for rows.Next() {
		var rec models.DeliveryRecord
		var hostedURL sql.NullString
		if err := rows.Scan(&rec.MessageID, &rec.Destination, &rec.SourceURL, &rec.SizeMB,
			&rec.Pushed, &rec.Uploaded, &hostedURL, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery record failed: %w", err)
		}
		rec.HostedURL = hostedURL.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery records failed: %w", err)
	}
	return records, nil
}
