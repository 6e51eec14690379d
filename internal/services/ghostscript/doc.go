// Package ghostscript mediates access to the Ghostscript CLI used to compress
// and merge PDFs.
//
// The client builds the fixed argument templates, captures stderr, and turns
// each call into a Verdict. The exit status is not trusted: a call produced
// output when the output file exists afterwards, unless stderr matched the
// password classifier. Both the executor and the classifier are injectable so
// the pipelines can be exercised without a real Ghostscript install.
package ghostscript
