// Package ingest turns uploaded files into a single canonical table.
//
// This package is the heart of the analyzer, containing all file handling
// independent of any UI or transport layer. It can be used by web handlers,
// CLI tools, or tests without modification.
//
// # Pipeline
//
// An upload is processed in four steps:
//
//  1. Classify: every file in the [Batch] is assigned a [ContainerKind] from
//     its filename suffix (.zip, .csv, .xlsx/.xls, .pdf).
//  2. Select: the first file of the highest-priority kind is chosen
//     (archive > flat-table > workbook > document). For archives the caller
//     picks one of the inner .csv entries by name.
//  3. Decode: bytes are decoded as UTF-8, falling back to Latin-1, and parsed
//     as comma-separated values. Workbooks are read sheet by sheet.
//  4. Normalize: columns receive an inferred type and multi-sheet workbooks
//     are concatenated with a reserved [SheetColumn].
//
// The entry point is [Ingester.Ingest]:
//
//	ing := ingest.NewIngester(ingest.DefaultRoleConfig())
//	res := ing.Ingest(ctx, ingest.Batch{Files: files})
//	switch res.Status {
//	case ingest.StatusSuccess:
//	    // res.Table, res.Name, res.Roles
//	case ingest.StatusEmpty:
//	    // nothing tabular in the batch
//	case ingest.StatusFailure:
//	    msg := ingest.MapError(res.Err)
//	}
//
// # Error Handling
//
// Ingest never returns a bare error. Failures are reported in [Result.Err]
// and always wrap one of the sentinel errors ([ErrCorruptArchive],
// [ErrEntryNotFound], [ErrUnsupportedWorkbookFormat], ...). Technical errors
// are mapped to user-friendly messages using [MapError].
//
// # Memory
//
// Inputs are not streamed; the whole file is held in memory while it is
// parsed. Callers bound this with the configured maximum upload size.
package ingest
