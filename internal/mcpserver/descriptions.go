package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeCleanup() string {
	return `Finds named objects in a Cisco ASA configuration that are declared but never referenced and returns the commands that remove them, plus the pruned configuration.

USE WHEN:
- Auditing a firewall configuration for stale objects before a change window
- Preparing removal commands for unused group policies, access lists, object-groups and objects
- Checking whether a proposed change leaves orphaned objects behind

INTERPRETING RESULTS:
- Categories are processed in order: group policies, access lists, object-groups, objects
- Removing an earlier category can make later objects unused in the same run
- An object is removed when the only line mentioning it is its own declaration
- match_mode substring (default) counts any line containing the name, so short names are over-counted and kept
- match_mode token requires a whole-word match and finds more unused objects
- fixpoint repeats the passes until nothing else becomes unused
- DfltGrpPolicy is never removed
- malformed lists declaration lines that were skipped

METRICS RETURNED:
- sections: removal commands per category, in report order
- summary: declared, removed and kept counts per category, lines removed
- malformed: skipped declaration lines with line number and reason
- The pruned configuration is returned as a second content block`
}

func describeReferenceGraph() string {
	return `Builds the graph of references between declared objects of a Cisco ASA configuration.

USE WHEN:
- Explaining why an object is or is not removable
- Finding chains of objects that only reference each other
- Visualizing which access lists and groups depend on an object

INTERPRETING RESULTS:
- An edge A -> B means a line of A's declaration block mentions B
- external counts lines outside every declaration that mention the object (access-group, default-group-policy, nat, ...)
- reachable is true when an externally referenced object leads to it
- Unreachable objects are the ones a fixpoint cleanup removes
- Matching uses whole-word tokens unless match_mode is substring

METRICS RETURNED:
- nodes: id, kind, name, declaration line, external count, reachable
- edges: from, to and the line that creates the reference
- mermaid: the graph as a Mermaid flowchart`
}
