package ckb

import "fmt"

// SporeData is the content of a spore (DOB) cell.
type SporeData struct {
	ContentType string
	Content     []byte
	ClusterID   []byte
}

// ParseSporeData decodes the molecule table stored in a spore cell.
func ParseSporeData(data []byte) (*SporeData, error) {
	fields, err := readTable(data)
	if err != nil {
		return nil, fmt.Errorf("parse spore data: %w", err)
	}
	if len(fields) < 3 {
		return nil, fmt.Errorf("parse spore data: %w: %d fields", errMolecule, len(fields))
	}

	contentType, err := readBytes(fields[0])
	if err != nil {
		return nil, fmt.Errorf("parse spore content type: %w", err)
	}
	content, err := readBytes(fields[1])
	if err != nil {
		return nil, fmt.Errorf("parse spore content: %w", err)
	}

	sd := &SporeData{
		ContentType: string(contentType),
		Content:     content,
	}
	if len(fields[2]) > 0 {
		cluster, err := readBytes(fields[2])
		if err != nil {
			return nil, fmt.Errorf("parse spore cluster id: %w", err)
		}
		sd.ClusterID = cluster
	}
	return sd, nil
}

// Encode serializes sd as a spore cell data table.
func (sd *SporeData) Encode() []byte {
	var cluster []byte
	if len(sd.ClusterID) > 0 {
		cluster = writeBytes(sd.ClusterID)
	}
	return writeTable(writeBytes([]byte(sd.ContentType)), writeBytes(sd.Content), cluster)
}
