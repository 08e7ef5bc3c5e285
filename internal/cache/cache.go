// Package cache provides the crop record cache backends used by the public
// lookup. Every backend stores the JSON form of the looked-up records
// under "<prefix>:<cropId>".
package cache

import (
	"encoding/json"

	"github.com/iliyamo/agritrace/internal/model"
)

func key(prefix, cropID string) string { return prefix + ":" + cropID }

func encode(recs []model.CropRecord) ([]byte, error) { return json.Marshal(recs) }

func decode(b []byte) ([]model.CropRecord, error) {
	var recs []model.CropRecord
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}
