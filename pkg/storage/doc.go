// Package storage lays out a run's output on disk.
//
// Each run gets its own directory named <channel>_<YYYYMMDD_HHMMSS> under the
// configured base directory. The JSON documents live at its top level and
// downloaded images go to an images/ subdirectory:
//
//	out/somechannel_20240501_100000/
//	    posts_somechannel_20240501_100000.json
//	    posts_somechannel_temp_20240501_100000.json
//	    images/post_1_img_1_standard.jpg
//	    images/post_1_img_1_highres.jpg
//
// Images are written to a temporary file and renamed into place, so a partial
// download never leaves a truncated .jpg behind.
package storage
