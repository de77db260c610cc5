package logger

// Most non-error log messages are given a message ID that can be used to set
// the log level for that message. Errors from the loader do get an ID too so
// API callers can tell malformed input apart from file system failures.
type MsgID = uint8

const (
	MsgID_None MsgID = iota

	// Module format transform
	MsgID_SysReg_ExportEqualsElided
	MsgID_SysReg_UnresolvableSpecifier
	MsgID_SysReg_ImportHelpersUnused

	// ESTree input
	MsgID_ESTree_InvalidJSON
	MsgID_ESTree_UnsupportedNode
	MsgID_ESTree_InvalidRegExp
	MsgID_ESTree_DuplicateDeclaration

	MsgID_END // Keep this at the end (used only for tests)
)

func StringToMsgIDs(str string, logLevel LogLevel, overrides map[MsgID]LogLevel) {
	switch str {
	case "export-equals-elided":
		overrides[MsgID_SysReg_ExportEqualsElided] = logLevel
	case "unresolvable-specifier":
		overrides[MsgID_SysReg_UnresolvableSpecifier] = logLevel
	case "import-helpers-unused":
		overrides[MsgID_SysReg_ImportHelpersUnused] = logLevel

	case "invalid-json":
		overrides[MsgID_ESTree_InvalidJSON] = logLevel
	case "unsupported-node":
		overrides[MsgID_ESTree_UnsupportedNode] = logLevel
	case "invalid-regexp":
		overrides[MsgID_ESTree_InvalidRegExp] = logLevel
	case "duplicate-declaration":
		overrides[MsgID_ESTree_DuplicateDeclaration] = logLevel

	default:
		// Ignore invalid entries since this message id may have
		// been renamed/removed since when this code was written
	}
}

func MsgIDToString(id MsgID) string {
	switch id {
	case MsgID_SysReg_ExportEqualsElided:
		return "export-equals-elided"
	case MsgID_SysReg_UnresolvableSpecifier:
		return "unresolvable-specifier"
	case MsgID_SysReg_ImportHelpersUnused:
		return "import-helpers-unused"

	case MsgID_ESTree_InvalidJSON:
		return "invalid-json"
	case MsgID_ESTree_UnsupportedNode:
		return "unsupported-node"
	case MsgID_ESTree_InvalidRegExp:
		return "invalid-regexp"
	case MsgID_ESTree_DuplicateDeclaration:
		return "duplicate-declaration"
	}

	return ""
}
