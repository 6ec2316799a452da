/*
Package pack relocates a document and every asset it references into a
target layout, patching references that would otherwise break.

	+-------------+     +-------------+     +-------------+
	| Strategise  | --> |   Rewrite   | --> |  Transfer   |
	| (plan map)  |     | (patch docs)|     | (backend)   |
	+------+------+     +------+------+     +------+------+
	       |                   |                   |
	  trace.Scanner     container.Opener    transfer.Transferer
	  sequence.Tileset                      DryRun | FileCopier
	                                        | ArchiveWriter

🎯 Purpose:
- Builds one AssetAction per distinct asset, keyed by NFC absolute path
- Mirrors in-project assets under the target, moves the rest below
  _outside_project/ using a drive and share aware key
- Finds the closure of documents whose references must be patched
- Enqueues primaries, tileset siblings and sequence members on a backend

🔄 Flow:
1. New() picks the backend and creates the temporary area
2. Strategise() visits usages, resolves destinations, groups rewrites
3. Execute() patches documents, writes pack-info.txt, transfers files
4. Close() removes the temporary area

⚡ Abort:
Abort() may be called from any goroutine. The pack stops at the next safe
point (each usage, each rewrite, each asset) with an *AbortedError. A
cancelled context has the same effect; Runner makes that immediate.

Missing and unreadable assets never fail a pack. They are collected and
reported through NotIncluded and the PackDone notification.
*/
package pack
