// Package partition implements the building blocks of a partition run:
// chunk planning, ICL model selection, per-chunk component ranking and the
// merge of chunk results into one label per family.
//
// # Flow
//
// A partition call (see package pipeline) proceeds as:
//
//  1. [Plan] splits the selected organisms into disjoint chunks.
//  2. For every chunk, [Selector.Select] runs the clustering primitive over
//     one or more Q values and keeps the model chosen by [ChooseQ].
//  3. [Rank] turns the anonymous mixture components into persistent,
//     shell and cloud labels by mean presence ratio.
//  4. A [Tally] collects the chunk votes; [Tally.Assemble] resolves one
//     label per family and builds the [Stats] record.
//
// # Former state
//
// A working directory kept from an earlier run can seed a new one:
// [LoadFormerState] reads the organism columns and the component summary,
// fixing Q and the initial mixture parameters.
package partition
