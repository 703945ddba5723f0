package prompt

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/ashureev/leetmentor/internal/domain"
)

// DefaultGuidanceKey is used when no tag of a problem matches a known category.
const DefaultGuidanceKey = "Array"

// CategoryGuidance is reference material the interviewer may draw on for a category.
type CategoryGuidance struct {
	Approaches      []string `json:"approaches"`
	KeyConcepts     []string `json:"key_concepts"`
	CommonPitfalls  []string `json:"common_pitfalls"`
	RelatedProblems []string `json:"related_problems"`
}

var guidanceKeys = []string{
	"Array", "String", "LinkedList", "Tree", "Graph", "Dynamic Programming", "Heap", "Hash Table",
}

var guidance = map[string]CategoryGuidance{
	"Array": {
		Approaches:      []string{"Two pointers", "Sliding window", "Prefix sums", "Sorting first", "Binary search on a sorted array"},
		KeyConcepts:     []string{"Index arithmetic", "In-place updates", "Time vs. space trade-offs"},
		CommonPitfalls:  []string{"Off-by-one errors at the boundaries", "Forgetting the empty array", "Mutating the input while iterating"},
		RelatedProblems: []string{"Two Sum", "Best Time to Buy and Sell Stock", "Product of Array Except Self", "Maximum Subarray"},
	},
	"String": {
		Approaches:      []string{"Two pointers", "Sliding window with a frequency map", "Character counting", "Building with a string builder"},
		KeyConcepts:     []string{"Immutability of strings", "Character encodings", "Palindromes and anagrams"},
		CommonPitfalls:  []string{"Quadratic concatenation in a loop", "Case and whitespace handling", "Empty or single-character input"},
		RelatedProblems: []string{"Valid Anagram", "Longest Substring Without Repeating Characters", "Valid Palindrome", "Group Anagrams"},
	},
	"LinkedList": {
		Approaches:      []string{"Dummy head node", "Fast and slow pointers", "In-place reversal", "Recursion"},
		KeyConcepts:     []string{"Pointer manipulation", "Cycle detection", "Finding the middle node"},
		CommonPitfalls:  []string{"Losing the reference to the next node", "Null dereference at the tail", "Not handling a single-node list"},
		RelatedProblems: []string{"Reverse Linked List", "Linked List Cycle", "Merge Two Sorted Lists", "Remove Nth Node From End of List"},
	},
	"Tree": {
		Approaches:      []string{"Depth-first search (pre/in/post order)", "Breadth-first search by level", "Recursion with return values", "Iterative traversal with a stack"},
		KeyConcepts:     []string{"Binary search tree ordering", "Height and depth", "Base cases on nil children"},
		CommonPitfalls:  []string{"Missing the nil base case", "Confusing height with depth", "Stack overflow on skewed trees"},
		RelatedProblems: []string{"Maximum Depth of Binary Tree", "Validate Binary Search Tree", "Binary Tree Level Order Traversal", "Lowest Common Ancestor of a Binary Tree"},
	},
	"Graph": {
		Approaches:      []string{"Breadth-first search", "Depth-first search", "Topological sort", "Union-Find", "Dijkstra for weighted shortest paths"},
		KeyConcepts:     []string{"Adjacency list vs. matrix", "Visited sets", "Connected components", "Cycle detection"},
		CommonPitfalls:  []string{"Revisiting nodes without a visited set", "Disconnected components", "Choosing DFS where BFS gives shortest paths"},
		RelatedProblems: []string{"Number of Islands", "Course Schedule", "Clone Graph", "Network Delay Time"},
	},
	"Dynamic Programming": {
		Approaches:      []string{"Top-down recursion with memoization", "Bottom-up tabulation", "State compression to reduce space"},
		KeyConcepts:     []string{"Overlapping subproblems", "Optimal substructure", "State definition and transitions"},
		CommonPitfalls:  []string{"Wrong base cases", "Ill-defined state", "Iterating in an order that reads uncomputed states"},
		RelatedProblems: []string{"Climbing Stairs", "Coin Change", "Longest Increasing Subsequence", "House Robber"},
	},
	"Heap": {
		Approaches:      []string{"Min-heap of size k", "Max-heap for top elements", "Two heaps for running medians", "Merging k sorted sources"},
		KeyConcepts:     []string{"Heap ordering property", "O(log n) push and pop", "Priority queues"},
		CommonPitfalls:  []string{"Using a max-heap where a min-heap of size k suffices", "Forgetting heapify costs", "Stale entries after updates"},
		RelatedProblems: []string{"Kth Largest Element in an Array", "Top K Frequent Elements", "Find Median from Data Stream", "Merge k Sorted Lists"},
	},
	"Hash Table": {
		Approaches:      []string{"Lookup of complements", "Frequency counting", "Grouping by a canonical key", "Seen-set for duplicates"},
		KeyConcepts:     []string{"Average O(1) lookups", "Choosing a good key", "Space for time trade-off"},
		CommonPitfalls:  []string{"Using mutable values as keys", "Counting the same element twice", "Ignoring worst-case collisions"},
		RelatedProblems: []string{"Two Sum", "Contains Duplicate", "Group Anagrams", "Longest Consecutive Sequence"},
	},
}

// Guidance returns the guidance for a comma-joined category and the key it resolved to.
//
// The category is split into tags and matched tag by tag rather than as one name:
// the first tag equal to a known key wins (ignoring case and spaces), then the first
// tag that contains a key's letters in order. "Hash Table, Array" therefore resolves
// to Hash Table, and "Linked List, Recursion" to LinkedList. A category none of whose
// tags match, single or multi-tag, resolves to DefaultGuidanceKey.
func Guidance(category string) (CategoryGuidance, string) {
	tags := domain.ProblemInfo{Category: category}.Categories()

	for _, tag := range tags {
		for _, key := range guidanceKeys {
			if normalizeKey(tag) == normalizeKey(key) {
				return guidance[key], key
			}
		}
	}
	for _, tag := range tags {
		for _, key := range guidanceKeys {
			if fuzzy.MatchNormalizedFold(normalizeKey(key), normalizeKey(tag)) {
				return guidance[key], key
			}
		}
	}
	return guidance[DefaultGuidanceKey], DefaultGuidanceKey
}

// normalizeKey makes "Linked List" and "linkedlist" compare equal.
func normalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}
