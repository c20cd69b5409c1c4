// Package notebook reads Jupyter notebooks and extracts, cell by cell, the
// few structured facts the compiler needs: headings, labeled narrative
// blocks, SQL sources with their comment and redirection footer, the
// token-producing formula, and tokens captured in result tables.
//
// The extraction functions never fail. Input that does not follow the
// expected shape yields zero values and the caller, which knows the
// surrounding cells, decides whether that is an error.
package notebook
