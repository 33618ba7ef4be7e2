package model

import (
	"encoding/json"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// SaveModel はモデルをJSONとしてファイルに保存する
//
// パラメータ:
//   - model: 保存するモデル（JSONエンコード可能な構造体）
//   - filename: 保存先のファイルパス
//
// 使用例:
//
//	err := model.SaveModel(booster, "final_model.json")
func SaveModel(model interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", filename)
	}
	defer file.Close()

	if err := SaveModelToWriter(model, file); err != nil {
		return err
	}
	return errors.Wrap(file.Sync(), "failed to sync model file")
}

// LoadModel はJSONファイルからモデルを読み込む
//
// 使用例:
//
//	var m lightgbm.Model
//	err := model.LoadModel(&m, "final_model.json")
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", filename)
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if err := json.NewDecoder(r).Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
