package review

import "context"

// Attempt is one identifier lookup to try, in policy priority order. Either
// Attr/Value or GivenName/Surname is set; Method is recorded on the output
// record if this attempt succeeds.
type Attempt struct {
	Attr  Attribute
	Value string

	// GivenName and Surname are set instead of Attr/Value for compound
	// name-component attempts.
	GivenName string
	Surname   string

	Method LookupMethod
}

func (a Attempt) isNameComponents() bool {
	return a.GivenName != "" || a.Surname != ""
}

// isEmpty reports whether the attempt carries no identifier at all. Empty
// attempts are skipped without touching the directory.
func (a Attempt) isEmpty() bool {
	return a.Value == "" && a.GivenName == "" && a.Surname == ""
}

// MatchedValue is the identifier string this attempt queried with.
func (a Attempt) MatchedValue() string {
	if a.isNameComponents() {
		if a.GivenName != "" && a.Surname != "" {
			return a.GivenName + " " + a.Surname
		}
		return a.GivenName + a.Surname
	}
	return a.Value
}

// Resolution is the terminal outcome of resolving one row.
type Resolution struct {
	Identity *Identity
	Method   LookupMethod

	// Matched is the attempt that produced Identity; zero unless resolved.
	Matched Attempt

	// Err is the directory failure when Method == MethodError.
	Err error
}

// Resolve drives the ordered attempts against the directory.
//
// The first attempt returning an identity wins; later attempts are never made
// even if they would also succeed. A directory error abandons the row's
// remaining attempts and yields MethodError; retry, if any, is the directory
// implementation's concern. Exhausting every attempt cleanly yields
// MethodFailed.
func Resolve(ctx context.Context, dir Directory, attempts []Attempt) Resolution {
	for _, at := range attempts {
		if at.isEmpty() {
			continue
		}

		var (
			id  *Identity
			err error
		)
		if at.isNameComponents() {
			id, err = dir.LookupNameComponents(ctx, at.GivenName, at.Surname)
		} else {
			id, err = dir.Lookup(ctx, at.Attr, at.Value)
		}
		if err != nil {
			return Resolution{Method: MethodError, Err: err}
		}
		if id != nil {
			return Resolution{Identity: id, Method: at.Method, Matched: at}
		}
	}
	return Resolution{Method: MethodFailed}
}

// Username derives the output username for a resolution: the directory's
// primary key when present, otherwise the identifier that matched. Unresolved
// rows get an empty username.
func (r Resolution) Username() string {
	if !r.Method.Resolved() {
		return ""
	}
	if r.Identity != nil && r.Identity.Username != "" {
		return r.Identity.Username
	}
	return r.Matched.MatchedValue()
}
