package mobile

/*
These types are exported and need to be implemented and used by the mobile
application.
*/

//------------------------------------------------------------------------------

// AuthenticatedHandler is told about the identity key, in hex, behind every
// credential the node accepts.
type AuthenticatedHandler interface {
	OnAuthenticated(identity string)
}

// ExceptionHandler is told about failures of operations that cannot return
// them.
type ExceptionHandler interface {
	OnException(string)
}
