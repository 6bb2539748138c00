package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type testEntity struct {
	typeID string
	id     string
}

func (e testEntity) EntityTypeID() string { return e.typeID }
func (e testEntity) ID() string           { return e.id }
func (e testEntity) Bundle() string       { return e.typeID }

func TestDefaultAccessHandler(t *testing.T) {
	h := NewDefaultAccessHandler(&EntityType{ID: "node", AdminPermission: "administer nodes"})
	e := testEntity{typeID: "node", id: "1"}

	admin := &StaticAccount{UID: "1", Permissions: []string{"administer nodes"}}
	editor := &StaticAccount{UID: "2", Permissions: []string{"access content"}}

	assert.True(t, h.Access(e, OpUpdate, "en", admin))
	assert.False(t, h.Access(e, OpUpdate, "en", editor))
	assert.False(t, h.Access(e, OpView, "en", AnonymousAccount()))
	assert.False(t, h.Access(e, OpView, "en", nil))

	noAdmin := NewDefaultAccessHandler(&EntityType{ID: "thing"})
	assert.False(t, noAdmin.Access(testEntity{typeID: "thing", id: "1"}, OpView, "en", admin))
}

func TestStaticAccount(t *testing.T) {
	assert.False(t, AnonymousAccount().IsAuthenticated())
	assert.True(t, (&StaticAccount{UID: "5"}).IsAuthenticated())
	assert.False(t, (&StaticAccount{UID: "5"}).HasPermission("anything"))
}

func TestAccessFunc(t *testing.T) {
	var h AccessControlHandler = AccessFunc(func(e Entity, op, langcode string, account Account) bool {
		return op == OpView
	})
	assert.True(t, h.Access(testEntity{}, OpView, "en", nil))
	assert.False(t, h.Access(testEntity{}, OpDelete, "en", nil))
}
