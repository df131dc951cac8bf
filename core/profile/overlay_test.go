package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registry(profiles ...*Profile) map[string]*Profile {
	out := make(map[string]*Profile, len(profiles))
	for _, p := range profiles {
		out[p.ID()] = p
	}
	return out
}

func TestOverlayMergeAndDelete(t *testing.T) {
	parent := NewBuilder("parent").
		SetConfig("parent", map[string]string{"k": "v", "d": "x"}).
		Build()
	child := NewBuilder("child").
		SetParents([]string{"parent"}).
		SetConfig("parent", map[string]string{"d": DeletedMarker, "k2": "v2"}).
		Build()

	o, err := Overlay(child, registry(parent, child), "")
	require.NoError(t, err)

	assert.True(t, o.IsOverlay())
	assert.Equal(t, "child", o.ID())
	assert.Equal(t, map[string]string{"k": "v", "k2": "v2"}, o.Config("parent"))
}

func TestOverlayDeletedKeyClears(t *testing.T) {
	parent := NewBuilder("parent").
		SetConfig("svc", map[string]string{"a": "1", "b": "2"}).
		Build()
	child := NewBuilder("child").
		SetParents([]string{"parent"}).
		SetConfig("svc", map[string]string{DeletedMarker: DeletedMarker, "c": "3"}).
		Build()

	o, err := Overlay(child, registry(parent, child), "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"c": "3"}, o.Config("svc"))
}

func TestOverlayOpaqueFilesOverwrite(t *testing.T) {
	parent := NewBuilder("parent").
		AddFile("script.sh", []byte("old")).
		Build()
	child := NewBuilder("child").
		SetParents([]string{"parent"}).
		AddFile("script.sh", []byte("new")).
		Build()

	o, err := Overlay(child, registry(parent, child), "")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), o.File("script.sh"))
}

func TestOverlayParentOrder(t *testing.T) {
	a := NewBuilder("a").
		SetConfig("svc", map[string]string{"who": "a"}).
		Build()
	b := NewBuilder("b").
		SetConfig("svc", map[string]string{"who": "b"}).
		Build()
	child := NewBuilder("child").
		SetParents([]string{"a", "b"}).
		Build()

	o, err := Overlay(child, registry(a, b, child), "")
	require.NoError(t, err)
	assert.Equal(t, "b", o.Config("svc")["who"], "later parents override earlier ones")
}

func TestOverlayEnvironmentQualified(t *testing.T) {
	p := NewBuilder("p").
		SetConfig("svc", map[string]string{"mode": "plain"}).
		AddFile("svc.properties#prod", writeProperties(map[string]string{"mode": "prod"})).
		Build()

	plain, err := Overlay(p, registry(p), "")
	require.NoError(t, err)
	assert.Equal(t, "plain", plain.Config("svc")["mode"])

	prod, err := Overlay(p, registry(p), "prod")
	require.NoError(t, err)
	assert.Equal(t, "prod", prod.Config("svc")["mode"])
	assert.False(t, prod.HasFile("svc.properties#prod"),
		"qualified entries do not appear in the overlay")
}

func TestOverlayMissingParent(t *testing.T) {
	child := NewBuilder("child").SetParents([]string{"ghost"}).Build()
	_, err := Overlay(child, registry(child), "")
	require.Error(t, err)
	var missing *MissingProfileError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "ghost", missing.ID)
}

func TestOverlayToleratesParentCycles(t *testing.T) {
	a := NewBuilder("a").
		SetParents([]string{"b"}).
		SetConfig("svc", map[string]string{"a": "1"}).
		Build()
	b := NewBuilder("b").
		SetParents([]string{"a"}).
		SetConfig("svc", map[string]string{"b": "2"}).
		Build()

	o, err := Overlay(a, registry(a, b), "")
	require.NoError(t, err)
	assert.Equal(t, "1", o.Config("svc")["a"])
	assert.Equal(t, "2", o.Config("svc")["b"])
}

func TestOverlayIdempotent(t *testing.T) {
	parent := NewBuilder("parent").
		SetConfig("svc", map[string]string{"a": "1", "gone": DeletedMarker}).
		Build()
	child := NewBuilder("child").
		SetParents([]string{"parent"}).
		SetConfig("svc", map[string]string{"b": "2"}).
		Build()

	reg := registry(parent, child)
	once, err := Overlay(child, reg, "")
	require.NoError(t, err)
	twice, err := Overlay(once, reg, "")
	require.NoError(t, err)

	assert.Equal(t, once.FileNames(), twice.FileNames())
	for _, name := range once.FileNames() {
		assert.Equal(t, once.File(name), twice.File(name), name)
	}
}
