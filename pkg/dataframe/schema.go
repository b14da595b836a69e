// Package dataframe implements the DataFrame and Schema entities of §3/§4.2:
// a named bundle of role-tagged columns with per-join-key indices, mutable
// during staging and frozen before feature generation.
package dataframe

// Role names one of the eight column buckets a DataFrame partitions its
// columns into.
type Role int

const (
	RoleCategorical Role = iota
	RoleJoinKey
	RoleNumerical
	RoleTarget
	RoleText
	RoleTimeStamp
	RoleUnusedFloat
	RoleUnusedString
)

func (r Role) String() string {
	switch r {
	case RoleCategorical:
		return "categorical"
	case RoleJoinKey:
		return "join_key"
	case RoleNumerical:
		return "numerical"
	case RoleTarget:
		return "target"
	case RoleText:
		return "text"
	case RoleTimeStamp:
		return "time_stamp"
	case RoleUnusedFloat:
		return "unused_float"
	case RoleUnusedString:
		return "unused_string"
	default:
		return "unknown"
	}
}

// ColumnInfo is the stable declaration of one column's name, role, and unit
// — the shape a Schema captures without any data.
type ColumnInfo struct {
	Name string
	Role Role
	Unit string
}

// Schema is the names and roles of a DataFrame's columns, without data,
// used as the stable declaration of shape (§3).
type Schema struct {
	TableName string
	Columns   []ColumnInfo
}

// ByRole filters the schema's columns to a single role, in the order
// s.Columns lists them (DataFrame.Schema sorts each role's columns by name).
func (s *Schema) ByRole(r Role) []ColumnInfo {
	var out []ColumnInfo
	for _, c := range s.Columns {
		if c.Role == r {
			out = append(out, c)
		}
	}
	return out
}

// Lookup finds a column by name irrespective of role.
func (s *Schema) Lookup(name string) (ColumnInfo, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnInfo{}, false
}

// Equal reports whether two schemas declare the same columns with the same
// roles and units, in the same order — used by the staging-idempotence
// property test (§8): stage(stage(F)) must equal stage(F) structurally.
func (s *Schema) Equal(other *Schema) bool {
	if s.TableName != other.TableName || len(s.Columns) != len(other.Columns) {
		return false
	}
	for i, c := range s.Columns {
		if c != other.Columns[i] {
			return false
		}
	}
	return true
}
