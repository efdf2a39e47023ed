package helper

import (
	"math/big"

	"golang.org/x/sys/unix"
)

// DiskUsage returns the used fraction of the filesystem holding path,
// truncated to two decimals.
func DiskUsage(path string) (float32, error) {
	var stat unix.Statfs_t

	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}

	availableBlocks := float64(stat.Bavail) * float64(stat.Bsize)
	totalBlocks := float64(stat.Blocks) * float64(stat.Bsize)
	if totalBlocks == 0 {
		return 0, nil
	}

	used := (100 - ((availableBlocks / totalBlocks) * 100)) / 100

	return float32(Truncate(used, 0.01)), nil
}

func Truncate(num float64, unit float64) float64 {
	bf := big.NewFloat(0).SetPrec(1000).SetFloat64(num)
	bu := big.NewFloat(0).SetPrec(1000).SetFloat64(unit)

	bf.Quo(bf, bu)

	i := big.NewInt(0)
	bf.Int(i)
	bf.SetInt(i)

	f, _ := bf.Mul(bf, bu).Float64()

	return f
}
