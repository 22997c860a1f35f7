package dataprocessing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	input := "open_time,open,close\n1000,1.5,2.5\n2000,,3.5\n"

	rs, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, rs.Rows())
	assert.Equal(t, []string{"open_time", "open", "close"}, rs.Names())

	open, ok := rs.Column("open")
	require.True(t, ok)
	assert.Equal(t, KindText, open.Kind)
	assert.Equal(t, []string{"1.5", ""}, open.Text)
	assert.Equal(t, []bool{false, true}, open.Nulls)
}

func TestReadCSVShortRecord(t *testing.T) {
	input := "a,b,c\n1,2\n"

	rs, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	c, ok := rs.Column("c")
	require.True(t, ok)
	assert.True(t, c.Nulls[0])
}

func TestReadCSVEmptyInput(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestRowSetAddColumn(t *testing.T) {
	rs := NewRowSet(2)
	require.NoError(t, rs.AddColumn(NewTextColumn("a", []string{"1", "2"})))

	t.Run("length mismatch", func(t *testing.T) {
		err := rs.AddColumn(NewTextColumn("b", []string{"1"}))
		assert.Error(t, err)
	})

	t.Run("duplicate name", func(t *testing.T) {
		err := rs.AddColumn(NewTextColumn("a", []string{"3", "4"}))
		assert.Error(t, err)
	})
}

func TestRowSetRename(t *testing.T) {
	rs := NewRowSet(1)
	require.NoError(t, rs.AddColumn(NewTextColumn("open_time", []string{"1"})))
	require.NoError(t, rs.AddColumn(NewTextColumn("close_time", []string{"2"})))

	require.NoError(t, rs.Rename("open_time", "OpenTime"))
	assert.Equal(t, []string{"OpenTime", "close_time"}, rs.Names())

	col, ok := rs.Column("OpenTime")
	require.True(t, ok)
	assert.Equal(t, []string{"1"}, col.Text)

	t.Run("same name is a no-op", func(t *testing.T) {
		assert.NoError(t, rs.Rename("OpenTime", "OpenTime"))
	})

	t.Run("collision", func(t *testing.T) {
		assert.Error(t, rs.Rename("close_time", "OpenTime"))
	})

	t.Run("unknown column", func(t *testing.T) {
		assert.Error(t, rs.Rename("missing", "Missing"))
	})
}

func TestRowSetAppend(t *testing.T) {
	first := NewRowSet(1)
	require.NoError(t, first.AddColumn(NewTextColumn("a", []string{"1"})))
	require.NoError(t, first.AddColumn(NewTextColumn("b", []string{"x"})))

	second := NewRowSet(2)
	require.NoError(t, second.AddColumn(NewTextColumn("a", []string{"2", "3"})))
	require.NoError(t, second.AddColumn(NewTextColumn("b", []string{"y", ""})))

	require.NoError(t, first.Append(second))

	assert.Equal(t, 3, first.Rows())
	a, _ := first.Column("a")
	assert.Equal(t, []string{"1", "2", "3"}, a.Text)
	b, _ := first.Column("b")
	assert.Equal(t, []bool{false, false, true}, b.Nulls)
}

func TestRowSetAppendMismatch(t *testing.T) {
	first := NewRowSet(1)
	require.NoError(t, first.AddColumn(NewTextColumn("a", []string{"1"})))

	second := NewRowSet(1)
	require.NoError(t, second.AddColumn(NewTextColumn("b", []string{"2"})))

	assert.Error(t, first.Append(second))
}
