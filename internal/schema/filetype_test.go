package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cleared-dev/recon/internal/model"
)

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    FileType
	}{
		{"rewards A product", []string{"Patient Name", "Product Name", "Points Earned"}, FileTypeSourceARewards},
		{"rewards A snake case", []string{"patient_name", "points_earned", "date"}, FileTypeSourceARewards},
		{"rewards B certificate", []string{"Certificate Code", "Patient Name", "Amount"}, FileTypeSourceBRewards},
		{"rewards B payout", []string{"Treatment Date", "Payout", "Customer"}, FileTypeSourceBRewards},
		{"pos transaction", []string{"Transaction ID", "Amount", "Client"}, FileTypePOS},
		{"pos payment", []string{"Payment Date", "Amount"}, FileTypePOS},
		{"rewards rule outranks pos", []string{"Patient Name", "Points Earned", "Transaction Amount"}, FileTypeSourceARewards},
		{"no rule", []string{"Date", "Customer", "Amount", "Type"}, FileTypeUnknown},
		{"amount alone", []string{"Amount"}, FileTypeUnknown},
		{"empty", nil, FileTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFileType(tt.headers))
		})
	}
}

func TestFileTypeSide(t *testing.T) {
	tests := []struct {
		ft     FileType
		want   model.Side
		wantOK bool
	}{
		{FileTypeSourceARewards, model.SideSource, true},
		{FileTypeSourceBRewards, model.SideSource, true},
		{FileTypePOS, model.SidePOS, true},
		{FileTypeUnknown, "", false},
	}
	for _, tt := range tests {
		side, ok := tt.ft.Side()
		assert.Equal(t, tt.want, side)
		assert.Equal(t, tt.wantOK, ok)
	}
}
