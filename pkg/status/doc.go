/*
Package status manages the destination tree for extsort.

	            +-------------+
	            |   Status    |
	            | (Storage)   |
	            +------+------+
	                   |
	      +-----------+-----------+
	      |                       |
	+-----+-----+           +----+-----+
	|   Files   |           | Progress |
	| (key/name)|           |  (logs)  |
	+-----------+           +----------+

🎯 Purpose:
- Copies source files into <destination>/<key>/<name>
- Detects whether a copy is new, modified or unchanged
- Keeps modification times and permission bits of the source
- Tracks per-file status and run progress

⚡ Key Responsibilities:
- Atomic writes (temp file in the key directory, then rename)
- Key directory creation, cached per run
- SHA-256 checksums for change detection
- Read-only planning for dry runs

🔍 Example:

	mgr := status.New(destination, logger)

	info, err := mgr.CopyFile(ctx, "/src/a/b.txt", "txt/b.txt")
	if err != nil {
		return err
	}
	fmt.Println(info.Status) // new
*/
package status
