// Package render provides implementations of the job system's render
// collaborator. The document templating format itself is out of scope;
// what lives here is the plumbing that turns a finished render into an
// output location the job system can hand back to callers.
package render
