package app

import "flag"

// SetFlags returns the names of the flags given on the command line, so
// settings-file values only fill in the rest.
func SetFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}
