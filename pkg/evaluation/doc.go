// Package evaluation compares a binary segmentation against a ground-truth
// mask of the same shape and reports volumetric overlap metrics.
//
// Every ratio metric uses an inverted convention: 0 means perfect agreement
// and larger values mean worse agreement. In particular "dice" is reported as
// 1 - Dice coefficient and "vod" as 1 - intersection/union (1 - IoU). Callers
// expecting the usual Dice/IoU direction must convert.
//
//	vd         |seg - gt| / gt
//	vod        1 - intersection/union
//	dice       1 - 2*intersection/(seg + gt)
//	usr        (seg - intersection) / seg
//	osr        (gt - intersection) / gt
//	fp         voxels in seg but not in gt
//	fp_normed  fp / seg
//	fn         voxels in gt but not in seg
//	fn_normed  fn / gt
//
// Volumes are counted over foreground voxels (value > 0). When either input is
// empty the ratio metrics are undefined and left out of the result; fp and fn
// are still reported.
package evaluation
