package callbacks

import (
	"reflect"
	"strings"
	"testing"

	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/appointment"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/family"
	"github.com/Freeeeeet/telemed_bot/internal/controller/callbacks/patient"
	"github.com/stretchr/testify/assert"
)

func sameFunc(a, b callbackFunc) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

func TestLookup(t *testing.T) {
	tests := []struct {
		data string
		want callbackFunc
	}{
		{"bk_new", patient.HandleNew},
		{"bk_doc:5", patient.HandleSelectDoctor},
		{"ap_cancel:6f1c2a3e-1111-4a4b-9c9d-000000000001", appointment.HandleCancel},
		{"ap_cancel_ok:6f1c2a3e-1111-4a4b-9c9d-000000000001", appointment.HandleCancelConfirm},
		{"ap_cancel_why:6f1c2a3e-1111-4a4b-9c9d-000000000001", appointment.HandleCancelWithReason},
		{"ap_docs:6f1c2a3e-1111-4a4b-9c9d-000000000001", appointment.HandleDocuments},
		{"ap_doc:6f1c2a3e-1111-4a4b-9c9d-000000000001:0", appointment.HandleDocument},
		{"fm_rev:3", family.HandleRevoke},
		{"fm_rev_ok:3", family.HandleRevokeConfirm},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			got := lookup(tt.data)
			if assert.NotNil(t, got) {
				assert.True(t, sameFunc(tt.want, got))
			}
		})
	}

	assert.Nil(t, lookup("subject:1"))
	assert.Nil(t, lookup(""))
}

func TestPrefixesDoNotShadow(t *testing.T) {
	for i, a := range prefixed {
		assert.True(t, strings.HasSuffix(a.prefix, ":"), a.prefix)
		for j, b := range prefixed {
			if i != j {
				assert.False(t, strings.HasPrefix(b.prefix, a.prefix), "%s shadows %s", a.prefix, b.prefix)
			}
		}
	}
}
