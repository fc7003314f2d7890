package journal

import (
	"ESGo/global"
	"fmt"
	"os"
	"strings"
)

var (
	pipe         chan map[Field]string
	fields       = getAllFields()
	stringfields = CastStringSlice(fields)
)

const (
	BufferSize        = 1000
	rotationTimestamp = "20060102-150405"
)

// Initialize opens the journal file and starts the writer. The journal
// stays disabled when filename is empty.
func Initialize(filename string) {
	if filename == "" {
		return
	}
	file, ok := prepareJournalFile(filename)
	if !ok {
		return
	}
	pipe = make(chan map[Field]string, BufferSize)
	global.WtGrp.Add(1)
	go writeRecords(file)
	global.LogInfo(global.LTJournal, "Subscription journal enabled: "+filename)
}

func prepareJournalFile(filename string) (*os.File, bool) {
	// rotate away a leftover from the previous run
	if info, err := os.Stat(filename); err == nil {
		modtm := info.ModTime().UTC().Format(rotationTimestamp)
		if err = os.Rename(filename, fmt.Sprintf("%s.%s", filename, modtm)); err != nil {
			global.LogError(global.LTJournal, fmt.Sprint("Error renaming existing journal file:", err))
			return nil, false
		}
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		global.LogWarning(global.LTJournal, fmt.Sprint("Error opening journal file:", err))
		return nil, false
	}

	return file, true
}

func writeRecords(file *os.File) {
	defer global.WtGrp.Done()
	defer file.Close()
	defer file.Sync()

	writeLine := func(line string) {
		if _, err := fmt.Fprintln(file, line); err != nil {
			fmt.Println("Error writing to file:", err)
		}
	}

	// write headers
	writeLine(strings.Join(stringfields, ";"))

	// write records
	for fieldsmap := range pipe {
		var sb strings.Builder
		for _, f := range fields {
			sb.WriteString(fieldsmap[f])
			sb.WriteString(";")
		}
		writeLine(sb.String()[:sb.Len()-1])
	}
}
