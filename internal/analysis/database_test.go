package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabase_AddFunction(t *testing.T) {
	t.Parallel()

	t.Run("AddAndLookup", func(t *testing.T) {
		t.Parallel()
		db := NewDatabase()

		f, err := db.AddFunction(0x401000, "main", []uint64{0x601000}, []string{"int32_t"})
		require.NoError(t, err)
		assert.Same(t, f, db.FunctionAt(0x401000))
		assert.Equal(t, "main", f.Name())
		assert.Equal(t, []uint64{0x601000}, f.DataRefs())
		assert.Equal(t, []string{"int32_t"}, f.TypeRefs())
		assert.Same(t, db, f.Database())
	})

	t.Run("ReAddKeepsHandle", func(t *testing.T) {
		t.Parallel()
		db := NewDatabase()

		f1, err := db.AddFunction(0x401000, "sub_401000", nil, nil)
		require.NoError(t, err)
		f2, err := db.AddFunction(0x401000, "main", []uint64{0x601000}, nil)
		require.NoError(t, err)

		assert.Same(t, f1, f2, "outstanding handles stay valid on re-analysis")
		assert.Equal(t, "main", f1.Name())
		assert.Equal(t, 1, db.FunctionCount())
	})

	t.Run("RefsAreCopied", func(t *testing.T) {
		t.Parallel()
		db := NewDatabase()
		refs := []uint64{0x601000}

		f, err := db.AddFunction(0x401000, "main", refs, nil)
		require.NoError(t, err)
		refs[0] = 0xdead

		assert.Equal(t, []uint64{0x601000}, f.DataRefs())
	})
}

func TestDatabase_DataVariablesAndTypes(t *testing.T) {
	t.Parallel()

	db := NewDatabase()
	require.NoError(t, db.AddType(Type{Name: "int32_t", Kind: TypeInt, Width: 4}))
	require.NoError(t, db.AddDataVariable(DataVariable{Addr: 0x601000, TypeName: "int32_t", AutoDiscovered: true}))

	dv, ok := db.DataVariableAt(0x601000)
	require.True(t, ok)
	assert.Equal(t, "int32_t", dv.TypeName)
	assert.True(t, dv.AutoDiscovered)

	typ, ok := db.TypeByName("int32_t")
	require.True(t, ok)
	assert.Equal(t, TypeInt, typ.Kind)

	_, ok = db.DataVariableAt(0xdead)
	assert.False(t, ok)

	assert.Error(t, db.AddType(Type{Name: ""}))
}

func TestDatabase_InsertionOrder(t *testing.T) {
	t.Parallel()

	db := NewDatabase()
	for _, addr := range []uint64{0x403000, 0x401000, 0x402000} {
		_, err := db.AddFunction(addr, "f", nil, nil)
		require.NoError(t, err)
	}

	funcs := db.Functions()
	require.Len(t, funcs, 3)
	assert.Equal(t, uint64(0x403000), funcs[0].Addr())
	assert.Equal(t, uint64(0x401000), funcs[1].Addr())
	assert.Equal(t, uint64(0x402000), funcs[2].Addr())
}

func TestDatabase_Close(t *testing.T) {
	t.Parallel()

	t.Run("HooksRunOnce", func(t *testing.T) {
		t.Parallel()
		db := NewDatabase()
		calls := 0
		db.OnClose(func() { calls++ })

		require.NoError(t, db.Close())
		require.NoError(t, db.Close())

		assert.Equal(t, 1, calls)
		assert.True(t, db.Closed())
	})

	t.Run("MutationsFailAfterClose", func(t *testing.T) {
		t.Parallel()
		db := NewDatabase()
		require.NoError(t, db.Close())

		_, err := db.AddFunction(0x401000, "main", nil, nil)
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, db.AddDataVariable(DataVariable{Addr: 1}), ErrClosed)
		assert.ErrorIs(t, db.AddType(Type{Name: "t"}), ErrClosed)
	})
}
