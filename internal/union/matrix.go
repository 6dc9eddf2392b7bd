package union

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/mat"
)

// ColumnInfo describes where a feature matrix column came from.
type ColumnInfo struct {
	Name     string
	Pipeline string   // feature type tag of the producing pipeline
	Sources  []string // dataset columns the values derive from
}

// FeatureMatrix is the dense row-major output of a Union.
type FeatureMatrix struct {
	rows    int
	cols    int
	data    []float64
	columns []ColumnInfo
}

// Rows returns the number of rows.
func (m *FeatureMatrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *FeatureMatrix) Cols() int { return m.cols }

// At returns the value at row i, column j. It panics when out of range.
func (m *FeatureMatrix) At(i, j int) float64 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(fmt.Sprintf("union: index (%d, %d) out of range [%d, %d)", i, j, m.rows, m.cols))
	}
	return m.data[i*m.cols+j]
}

// Row returns a copy of row i.
func (m *FeatureMatrix) Row(i int) []float64 {
	out := make([]float64, m.cols)
	copy(out, m.data[i*m.cols:(i+1)*m.cols])
	return out
}

// Col returns a copy of column j.
func (m *FeatureMatrix) Col(j int) []float64 {
	out := make([]float64, m.rows)
	for i := range out {
		out[i] = m.data[i*m.cols+j]
	}
	return out
}

// Dense returns the matrix as a gonum matrix. It returns nil when the matrix
// has no rows or no columns, which gonum cannot represent.
func (m *FeatureMatrix) Dense() *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		return nil
	}
	data := make([]float64, len(m.data))
	copy(data, m.data)
	return mat.NewDense(m.rows, m.cols, data)
}

// Names returns the column names in order.
func (m *FeatureMatrix) Names() []string {
	names := make([]string, len(m.columns))
	for i, c := range m.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns the provenance of every column in order.
func (m *FeatureMatrix) Columns() []ColumnInfo {
	out := make([]ColumnInfo, len(m.columns))
	for i, c := range m.columns {
		out[i] = ColumnInfo{Name: c.Name, Pipeline: c.Pipeline, Sources: append([]string(nil), c.Sources...)}
	}
	return out
}

// Fingerprint hashes the ordered column names and their pipelines. Two
// matrices with the same fingerprint have the same column layout.
func (m *FeatureMatrix) Fingerprint() uint64 {
	h := xxhash.New()
	for _, c := range m.columns {
		_, _ = h.WriteString(c.Pipeline)
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(c.Name)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// String returns a short description of the matrix shape and columns.
func (m *FeatureMatrix) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "FeatureMatrix[%dx%d]", m.rows, m.cols)
	for _, c := range m.columns {
		fmt.Fprintf(&sb, "\n  %s (%s) <- %s", c.Name, c.Pipeline, strings.Join(c.Sources, ", "))
	}
	return sb.String()
}
