package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceRecordClone(t *testing.T) {
	original := SourceRecord{"part_no": "AB123", "price": 12.5}
	clone := original.Clone()

	clone["part_no"] = "CD456"
	clone["extra"] = "x"

	assert.Equal(t, "AB123", original["part_no"])
	assert.NotContains(t, original, "extra")
}
