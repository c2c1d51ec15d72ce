// Copyright 2025 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package collect

// minParallelism is the lowest number of batches columns are split into.
const minParallelism = 2

// SplitBatches splits items into contiguous batches of ceil(N/max(2, parallelism))
// items each. The batches partition items in order.
func SplitBatches[T any](items []T, parallelism int) [][]T {
	if len(items) == 0 {
		return nil
	}
	dop := max(minParallelism, parallelism)
	batchSize := (len(items) + dop - 1) / dop
	batches := make([][]T, 0, (len(items)+batchSize-1)/batchSize)
	for start := 0; start < len(items); start += batchSize {
		end := min(start+batchSize, len(items))
		batches = append(batches, items[start:end:end])
	}
	return batches
}
