package types

// FileOpKind defines the type of file operation
type FileOpKind string

const (
	// FileOpCopy copies a payload file to the resolved destination,
	// creating parent directories as needed
	FileOpCopy FileOpKind = "copy_file"

	// FileOpDelete removes the file at the resolved path; an absent
	// file is a no-op
	FileOpDelete FileOpKind = "delete_file"
)

// FileOp is one configured file operation. Destination may carry
// per-user placeholder tokens; Source never does.
type FileOp struct {
	Kind        FileOpKind
	Source      string
	Destination LogicalTarget
}

// RegistryAction defines the type of registry entry operation
type RegistryAction string

const (
	// RegActionSet creates the key if absent and writes the value
	RegActionSet RegistryAction = "set"

	// RegActionDeleteValue removes a single named value, leaving the
	// key in place; an absent value is a no-op
	RegActionDeleteValue RegistryAction = "delete-value"

	// RegActionDeleteKey removes the key and its whole subtree; an
	// absent key is a no-op
	RegActionDeleteKey RegistryAction = "delete-key"
)

// RegistryOp is one configured registry entry operation. A key rooted
// at HKCU is per-user and fans out under the system account.
type RegistryOp struct {
	Action RegistryAction
	Key    LogicalTarget
	Name   string
	Value  Value
}

// ValueType tags the wire type of a registry value.
type ValueType string

const (
	ValueString       ValueType = "string"
	ValueExpandString ValueType = "expand-string"
	ValueDword        ValueType = "dword"
	ValueQword        ValueType = "qword"
	ValueMultiString  ValueType = "multi-string"
	ValueBinary       ValueType = "binary"
)

// Value is a typed registry value. Exactly one payload field is
// meaningful, selected by Type.
type Value struct {
	Type    ValueType
	String  string
	Strings []string
	Integer uint64
	Bytes   []byte
}
