/*
Package operation implements the extsort operations.

	+-------------+
	|  Operation  |
	| (sort/plan/ |
	|   clean)    |
	+------+------+
	       |
	+------+------+      +-------------+
	|    walk     | ---> |   status    |
	| (traverse)  |      | (dest tree) |
	+-------------+      +-------------+

🎯 Purpose:
- sort copies every regular file of a source tree into
  <destination>/<key>/<name>, where key is the file extension
- status reports what sort would do without writing
- clean removes what earlier sorts recorded in the destination manifest

🔄 Flow of a sort:
1. Check the source root (missing or not a directory aborts before any write)
2. Lock the destination
3. Walk the source; unreadable directories are reported and skipped
4. Copy each file; a failed copy is reported and the run goes on
5. Save the manifest and print a summary

🔍 Example:

	op := operation.NewSortOperation(operation.Options{
		Source:  "photos",
		Config:  cfg,
		Console: console,
	})
	err := operation.NewRunner(&logger, false).Run(ctx, op)
*/
package operation
