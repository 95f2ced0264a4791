package punchfile

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"
)

// readXLS reads a legacy BIFF workbook, the format most clock terminals still
// export. One row past MaxRows is read so oversized files can be told apart.
func readXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if workbook.NumSheets() == 0 {
		return nil, fmt.Errorf("no worksheet found")
	}
	return workbook.ReadAllCells(MaxRows + 1), nil
}
