package util

import "slices"

// Batch 将切片按固定大小拆分，batchSize<=0 时整体作为一批。每一批都是独立拷贝。
func Batch[T any](items []T, batchSize int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = len(items)
	}
	result := make([][]T, 0, (len(items)+batchSize-1)/batchSize)
	for chunk := range slices.Chunk(items, batchSize) {
		result = append(result, slices.Clone(chunk))
	}
	return result
}
