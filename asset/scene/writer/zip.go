package writer

import (
	"archive/zip"
	"encoding/gob"
	"os"
	"time"

	"github.com/achilleasa/polaris-lbvh/asset/scene"
	"github.com/achilleasa/polaris-lbvh/log"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const (
	dataFile = "scene.bin"
)

type zipSceneWriter struct {
	logger   log.Logger
	filename string
}

// Create a new zip scene writer.
func newZipSceneWriter(filename string) *zipSceneWriter {
	return &zipSceneWriter{
		logger:   log.New("zip writer"),
		filename: filename,
	}
}

// Write compiled scene to a zip archive containing a gob-encoded payload.
func (w *zipSceneWriter) Write(sc *scene.Scene) (err error) {
	w.logger.Noticef(`writing compiled scene to "%s"`, w.filename)
	start := time.Now()

	f, err := os.Create(w.filename)
	if err != nil {
		return errors.Wrapf(err, "zipSceneWriter: could not create %s", w.filename)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
		if err != nil {
			os.Remove(w.filename)
		}
	}()

	zw := zip.NewWriter(f)
	defer func() {
		err = multierr.Append(err, zw.Close())
	}()

	entry, err := zw.Create(dataFile)
	if err != nil {
		return err
	}
	if err = gob.NewEncoder(entry).Encode(sc); err != nil {
		return errors.Wrapf(err, "zipSceneWriter: could not encode %s", dataFile)
	}

	w.logger.Noticef("wrote scene %s in %d ms", sc.BuildID, time.Since(start).Nanoseconds()/1000000)
	return nil
}
