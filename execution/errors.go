package execution

import "fmt"

// xerrorsTableNotFound reports a missing catalog entry. Kept local rather
// than added to internal/xerrors's sentinel set since it always carries a
// table name the caller needs in the message.
func xerrorsTableNotFound(name string) error {
	return fmt.Errorf("execution: table %q not found in catalog", name)
}
