package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeAnalyzeLCOM() string {
	return `Computes Lack of Cohesion of Methods (LCOM) for every class in C# and Java sources and in .lcom.yaml/.lcom.json type model dumps.

USE WHEN:
- Looking for classes that bundle unrelated responsibilities
- Choosing which class to split before a refactoring
- Checking whether a change made a class less cohesive

INTERPRETING RESULTS:
- LCOM = max(P - Q, 0) where P counts method pairs sharing no field or property and Q counts pairs sharing at least one
- LCOM 0: cohesive, every method pair overlaps at least as often as not
- LCOM >= 1: some methods work on disjoint state
- LCOM >= 10 (default high threshold): strong split candidate, look for clusters of methods that touch the same members
- Constructors, property accessors and bodiless methods are not counted
- A class with several methods and no fields scores n(n-1)/2

METRICS RETURNED:
- Per type: lcom, methods, members, pairs, cohesive, non_cohesive, method and member names
- Summary: total types and files, mean, stddev, p90, max, high count
- Errors: files that could not be read and types with an invalid model`
}

func describeExplainLCOM() string {
	return `Shows the usage matrix behind one class's LCOM value: which members count, which methods are compared, and which members each method touches.

USE WHEN:
- A class scored high in analyze_lcom and you need to see why
- Planning how to split a class along member usage
- Checking which methods share no state with the rest

INTERPRETING RESULTS:
- members: data members in bit order (properties first, then fields)
- methods[].vector: one character per member, 1 when the method uses it
- methods[].uses: the member names behind the 1 bits
- Groups of methods whose vectors never overlap are candidates for separate classes

METRICS RETURNED:
- members, methods with usage vectors, pair counts and the LCOM value
- The inheritance and backing field policies the value was computed with`
}
