package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBorrowRequest_UnmarshalRefs(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantItem string
		wantUser string
		wantID   int64
	}{
		{
			name:     "nested objects",
			body:     `{"id":1,"equipment":{"id":7,"name":"Tripod","category":{"id":2,"name":"Camera"}},"user":{"id":3,"username":"jd","first_name":"Jane","last_name":"Doe"},"status":"pending"}`,
			wantItem: "Tripod",
			wantUser: "Jane Doe",
			wantID:   7,
		},
		{
			name:     "bare ids with flat names",
			body:     `{"id":1,"equipment":7,"equipment_name":"Tripod","user":3,"user_name":"jdoe","status":"issued"}`,
			wantItem: "Tripod",
			wantUser: "jdoe",
			wantID:   7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r BorrowRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &r))
			assert.Equal(t, tt.wantID, r.Equipment.ID)
			assert.Equal(t, tt.wantItem, r.ItemName())
			assert.Equal(t, tt.wantUser, r.RequesterName())
		})
	}
}

func TestRoleAndStatus(t *testing.T) {
	assert.True(t, RoleAdmin.Privileged())
	assert.True(t, RoleStaff.Privileged())
	assert.False(t, RoleStudent.Privileged())
	assert.False(t, Role("guest").Valid())

	for _, s := range Statuses {
		assert.True(t, s.Valid())
	}
	assert.False(t, Status("lost").Valid())
}

func TestProfile_DisplayName(t *testing.T) {
	assert.Equal(t, "Jane", Profile{Username: "jd", FirstName: "Jane"}.DisplayName())
	assert.Equal(t, "jd", Profile{Username: "jd"}.DisplayName())
}
