package db

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LibraryRecord struct {
	Category string
	Text     string
}

// LoadScenarioLibrary reads category,text rows from a CSV and inserts the ones
// not already present into the scenario_library table.
func LoadScenarioLibrary(conn *gorm.DB, path string) (int, error) {
	if conn == nil {
		return 0, errors.New("db connection is nil")
	}
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	records, err := ReadScenarioCSV(file)
	if err != nil {
		return 0, err
	}
	inserted := 0
	for _, record := range records {
		entry := ScenarioLibrary{Category: record.Category, Text: record.Text}
		result := conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
		if result.Error != nil {
			return inserted, result.Error
		}
		inserted += int(result.RowsAffected)
	}
	return inserted, nil
}

// ReadScenarioCSV parses a library CSV with a header row. Rows with a single
// column, an empty category or empty text are skipped.
func ReadScenarioCSV(r io.Reader) ([]LibraryRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var records []LibraryRecord
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		category := strings.TrimSpace(row[0])
		text := strings.TrimSpace(row[1])
		if category == "" || text == "" {
			continue
		}
		records = append(records, LibraryRecord{Category: category, Text: text})
	}
	return records, nil
}
